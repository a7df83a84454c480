package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "javacorpus",
	Short: "javacorpus - build method-level datasets from compiled Java projects",
	Long: `javacorpus walks a directory of compiled classes, correlates every method
with its source declaration and writes one dataset row per method: signature,
bytecode listing, direct callees, modifiers, documentation and body text.

Settings are read from .javacorpus/config.yml in the project directory,
overridden by JAVACORPUS_* environment variables and then by flags.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
