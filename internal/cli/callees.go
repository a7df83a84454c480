package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/javacorpus/internal/callgraph"
	"github.com/mvp-joe/javacorpus/internal/config"
	"github.com/mvp-joe/javacorpus/internal/program"
)

type calleesOptions struct {
	dir       string
	classes   string
	algorithm string
}

func newCalleesCmd() *cobra.Command {
	opts := &calleesOptions{}
	cmd := &cobra.Command{
		Use:   "callees <signature> | <class> <method>",
		Short: "Print the direct callees of a method",
		Long: `Callees builds the call graph rooted at one method and prints the methods it
calls directly, one signature per line in call-site order.

The method is named either by its full signature or by class and method name;
the latter probes every overload.

Examples:
  javacorpus callees '<com.acme.Service: void run(java.lang.String)>'
  javacorpus callees com.acme.Service run --algorithm cha
`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigFromDir(opts.dir)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cmd.Flags().Changed("classes") {
				cfg.Input.ClassesDir = opts.classes
			}
			if cmd.Flags().Changed("algorithm") {
				cfg.CallGraph.Algorithm = opts.algorithm
			}
			return executeCallees(cmd.Context(), cmd.OutOrStdout(), opts.dir, cfg, args)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", ".", "Project directory holding .javacorpus/config.yml")
	cmd.Flags().StringVar(&opts.classes, "classes", "", "Root of the compiled class tree")
	cmd.Flags().StringVar(&opts.algorithm, "algorithm", "", "Call graph algorithm: rta or cha")
	return cmd
}

func init() {
	rootCmd.AddCommand(newCalleesCmd())
}

// executeCallees probes the methods named by args and prints their edges.
// Probe failures are reported instead of being swallowed.
func executeCallees(ctx context.Context, out io.Writer, rootDir string, cfg *config.Config, args []string) error {
	view, err := program.Load(ctx, resolvePath(rootDir, cfg.Input.ClassesDir))
	if err != nil {
		return fmt.Errorf("failed to load classes: %w", err)
	}

	var methods []*program.Method
	if len(args) == 1 {
		m, err := view.MethodBySignature(args[0])
		if err != nil {
			return err
		}
		methods = append(methods, m)
	} else {
		methods, err = view.FindMethods(args[0], args[1])
		if err != nil {
			return err
		}
		if len(methods) == 0 {
			return fmt.Errorf("%w: %s.%s", program.ErrMethodNotFound, args[0], args[1])
		}
	}

	prober, err := callgraph.New(view, callgraph.Options{
		Algorithm: callgraph.Algorithm(strings.ToLower(cfg.CallGraph.Algorithm)),
	})
	if err != nil {
		return err
	}
	defer prober.Close()

	for _, m := range methods {
		edges, err := prober.Edges(ctx, m)
		if len(methods) > 1 {
			fmt.Fprintf(out, "%s\n", m.Signature)
		}
		if err != nil {
			fmt.Fprintf(out, "  error: %v\n", err)
			continue
		}
		for _, e := range edges {
			if len(methods) > 1 {
				fmt.Fprint(out, "  ")
			}
			fmt.Fprintln(out, e.Callee)
		}
	}
	return nil
}
