package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vito/warden/pkg/eval"
	"github.com/vito/warden/pkg/ioctx"
)

func testCmd(cfg *Config) *cobra.Command {
	var flags capFlags

	cmd := &cobra.Command{
		Use:   "test [flags] file...",
		Short: "Run test and property blocks",
		Long: `Test runs every test block once and every property block against
generated inputs. Properties draw from the Rand capability, so --seed makes
a run reproducible.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, file := range args {
				n, err := runTestFile(cmd.Context(), cmd, cfg, &flags, file)
				if err != nil {
					return err
				}
				failed += n
			}
			if failed > 0 {
				return errFailed{what: "failing test", n: failed}
			}
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func runTestFile(ctx context.Context, cmd *cobra.Command, cfg *Config, flags *capFlags, file string) (int, error) {
	mod, config, err := loadModule(cfg, file)
	if err != nil {
		return 0, err
	}
	if !flags.noCheck {
		if err := preflight(ctx, cfg, config, mod); err != nil {
			return 0, err
		}
	}

	caps, err := flags.capabilities(ctx, cmd, config, nil)
	if err != nil {
		return 0, err
	}

	report, err := eval.New(config.EvalOptions(caps)).RunTests(ctx, mod)
	if err != nil {
		return 0, reportRuntime(ctx, cfg, err)
	}

	out := ioctx.StdoutFromContext(ctx)
	for _, res := range report.Results {
		fmt.Fprintln(out, res.String())
	}
	slog.Debug("ran tests", "file", file, "total", len(report.Results), "failed", report.Failed())
	fmt.Fprintf(out, "%s: %d passed, %d failed\n", file, len(report.Results)-report.Failed(), report.Failed())
	return report.Failed(), nil
}
