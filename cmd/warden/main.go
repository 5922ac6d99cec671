package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/ioctx"
	"github.com/vito/warden/pkg/project"
)

// Config holds the flags shared by every subcommand.
type Config struct {
	Debug bool
	Plain bool
}

func main() {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:   "warden",
		Short: "Warden language checker and interpreter",
		Long: `Warden checks and runs programs whose effects are tracked by the type
checker and granted as capabilities at run time. Programs are read as AST
documents (.ast.yaml or .ast.json).`,
		Example: `  # Check a few modules
  warden check app.ast.yaml lib.ast.yaml

  # Run main with the network denied
  warden run --deny Net app.ast.yaml

  # Run test and property blocks with a fixed seed
  warden test --seed 7 app.ast.yaml`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cfg.Debug)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging and dump decoded modules")
	rootCmd.PersistentFlags().BoolVar(&cfg.Plain, "plain", false, "Render diagnostics without styling")

	rootCmd.AddCommand(checkCmd(&cfg))
	rootCmd.AddCommand(runCmd(&cfg))
	rootCmd.AddCommand(testCmd(&cfg))
	rootCmd.AddCommand(builtinsCmd())

	ctx := ioctx.WithStreams(context.Background(), ioctx.OS())
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// loadModule decodes an AST document and finds the project config that
// governs it.
func loadModule(cfg *Config, file string) (*ast.Module, *project.Config, error) {
	mod, err := ast.DecodeFile(file)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Debug {
		_, _ = pretty.Fprintf(os.Stderr, "%# v\n", mod)
	}
	config, err := project.ForFile(file)
	if err != nil {
		return nil, nil, err
	}
	return mod, config, nil
}

func (cfg *Config) renderer() *diag.Renderer {
	return &diag.Renderer{Plain: cfg.Plain, Context: 1}
}

// errFailed is returned after diagnostics have already been printed.
type errFailed struct {
	what string
	n    int
}

func (e errFailed) Error() string {
	if e.n == 1 {
		return fmt.Sprintf("1 %s", e.what)
	}
	return fmt.Sprintf("%d %ss", e.n, e.what)
}
