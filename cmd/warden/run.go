package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/effects"
	"github.com/vito/warden/pkg/eval"
	"github.com/vito/warden/pkg/ioctx"
	"github.com/vito/warden/pkg/project"
)

// capFlags override the project's capability policy.
type capFlags struct {
	deny    []string
	seed    uint64
	clock   int64
	noCheck bool
}

func (f *capFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.deny, "deny", nil, "Deny a built-in effect (repeatable)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Seed randomness for reproducible runs")
	cmd.Flags().Int64Var(&f.clock, "clock", 0, "Pin the clock at Unix milliseconds")
	cmd.Flags().BoolVar(&f.noCheck, "no-check", false, "Skip the static checker")
}

func (f *capFlags) capabilities(ctx context.Context, cmd *cobra.Command, config *project.Config, args []string) (*effects.Capabilities, error) {
	opts := config.EffectOptions()
	opts.Deny = append(opts.Deny, f.deny...)
	for _, name := range f.deny {
		if !effects.IsBuiltin(name) {
			return nil, fmt.Errorf("cannot deny %q: not a built-in effect", name)
		}
	}
	if cmd.Flags().Changed("seed") {
		opts.Seed = &f.seed
	}
	if cmd.Flags().Changed("clock") {
		opts.FixedClock = &f.clock
	}
	if len(args) > 0 {
		opts.Args = args
	}
	return effects.System(ctx, opts)
}

func runCmd(cfg *Config) *cobra.Command {
	var flags capFlags

	cmd := &cobra.Command{
		Use:   "run [flags] file [-- args...]",
		Short: "Check a module and run its main function",
		Long: `Run checks the module, then evaluates it with capabilities built from
warden.toml and the flags. Arguments after -- are visible through Env.args.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMain(cmd.Context(), cmd, cfg, &flags, args[0], args[1:])
		},
	}

	flags.register(cmd)

	return cmd
}

func runMain(ctx context.Context, cmd *cobra.Command, cfg *Config, flags *capFlags, file string, args []string) error {
	mod, config, err := loadModule(cfg, file)
	if err != nil {
		return err
	}
	if !flags.noCheck {
		if err := preflight(ctx, cfg, config, mod); err != nil {
			return err
		}
	}

	caps, err := flags.capabilities(ctx, cmd, config, args)
	if err != nil {
		return err
	}

	interp := eval.New(config.EvalOptions(caps))
	result, err := interp.EvalModule(ctx, mod)
	if err != nil {
		return reportRuntime(ctx, cfg, err)
	}
	if result != nil && result.TypeName() != "Unit" {
		fmt.Fprintln(ioctx.StdoutFromContext(ctx), result)
	}
	return nil
}

// preflight checks mod and prints its diagnostics to stderr, failing when
// there are errors.
func preflight(ctx context.Context, cfg *Config, config *project.Config, mod *ast.Module) error {
	checker := config.Checker()
	err := checker.CheckModule(mod)
	if ds := checker.Diagnostics(); len(ds) > 0 {
		fmt.Fprintln(ioctx.StderrFromContext(ctx), cfg.renderer().RenderAll(ds))
	}
	var bag *diag.Bag
	if errors.As(err, &bag) {
		return errFailed{what: "error", n: len(bag.Errors())}
	}
	return err
}

func reportRuntime(ctx context.Context, cfg *Config, err error) error {
	var rt *eval.RuntimeError
	if !errors.As(err, &rt) {
		return err
	}
	slog.Debug("runtime error", "code", rt.Code, "span", rt.Span.String())
	fmt.Fprintln(ioctx.StderrFromContext(ctx), cfg.renderer().Render(rt.Diagnostic()))
	return errFailed{what: "runtime error", n: 1}
}
