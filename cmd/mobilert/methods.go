package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMethodsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List the methods of a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			model, cleanup, err := loadModel(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			for _, m := range model.Module().GetMethods() {
				fmt.Fprintf(out, "%s\t%s\n", m.Name(), m.QualifiedName())
			}
			return nil
		},
	}
}
