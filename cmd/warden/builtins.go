package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vito/warden/pkg/effects"
	"github.com/vito/warden/pkg/eval"
)

func builtinsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "builtins",
		Short: "List built-in functions, methods and effect operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listBuiltins(os.Stdout)
		},
	}
}

func listBuiltins(w io.Writer) error {
	receiver := ""
	for _, def := range eval.Builtins() {
		if def.IsMethod && def.Receiver != receiver {
			receiver = def.Receiver
			fmt.Fprintf(w, "\n%s\n", receiver)
		}
		fmt.Fprintf(w, "  %s\n", def.Signature())
		if def.Doc != "" {
			fmt.Fprintf(w, "      %s\n", def.Doc)
		}
	}
	for _, effect := range effects.Builtins {
		fmt.Fprintf(w, "\neffect %s\n", effect)
		for _, op := range effects.Ops(effect) {
			sig := fmt.Sprintf("%s.%s(", effect, op.Name)
			for i, p := range op.Params {
				if i > 0 {
					sig += ", "
				}
				sig += p.String()
			}
			fmt.Fprintf(w, "  %s) -> %s\n", sig, op.Return)
			if op.Doc != "" {
				fmt.Fprintf(w, "      %s\n", op.Doc)
			}
		}
	}
	return nil
}
