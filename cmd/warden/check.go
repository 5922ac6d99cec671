package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/ioctx"
)

func checkCmd(cfg *Config) *cobra.Command {
	var warningsAsErrors bool

	cmd := &cobra.Command{
		Use:   "check [flags] file...",
		Short: "Type-check and lint modules without running them",
		Long: `Check runs the static checker over each module concurrently and prints
every diagnostic in file order. The command fails when any module has an
error.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cfg, args, warningsAsErrors)
		},
	}

	cmd.Flags().BoolVarP(&warningsAsErrors, "strict", "s", false, "Fail on warnings too")

	return cmd
}

type checkResult struct {
	diagnostics []diag.Diagnostic
	errors      int
	warnings    int
}

func runCheck(ctx context.Context, cfg *Config, files []string, strict bool) error {
	results := make([]checkResult, len(files))

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for idx, file := range files {
		eg.Go(func() error {
			res, err := checkFile(cfg, file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			results[idx] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	out := ioctx.StdoutFromContext(ctx)
	r := cfg.renderer()
	var failed checkResult
	for _, res := range results {
		if len(res.diagnostics) > 0 {
			fmt.Fprintln(out, r.RenderAll(res.diagnostics))
		}
		failed.errors += res.errors
		failed.warnings += res.warnings
	}

	switch {
	case failed.errors > 0:
		return errFailed{what: "error", n: failed.errors}
	case strict && failed.warnings > 0:
		return errFailed{what: "warning", n: failed.warnings}
	}
	return nil
}

func checkFile(cfg *Config, file string) (checkResult, error) {
	mod, config, err := loadModule(cfg, file)
	if err != nil {
		return checkResult{}, err
	}

	checker := config.Checker()
	err = checker.CheckModule(mod)
	var bag *diag.Bag
	if err != nil && !errors.As(err, &bag) {
		return checkResult{}, err
	}

	all := &diag.Bag{Diagnostics: checker.Diagnostics()}
	all.Sort()
	slog.Debug("checked module", "file", file, "diagnostics", all.Len())
	return checkResult{
		diagnostics: all.Diagnostics,
		errors:      len(all.Errors()),
		warnings:    len(all.Warnings()),
	}, nil
}
