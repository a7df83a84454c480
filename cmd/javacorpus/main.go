package main

import "github.com/mvp-joe/javacorpus/internal/cli"

func main() {
	cli.Execute()
}
