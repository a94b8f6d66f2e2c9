package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/otelwasm/mobilert/symbolicate"
)

type symbolicateOptions struct {
	tablePath string
	typeName  string
	hierarchy bool
}

func newSymbolicateCommand() *cobra.Command {
	opts := &symbolicateOptions{}
	cmd := &cobra.Command{
		Use:   "symbolicate handle...",
		Short: "Translate debug handles into model source locations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handles := make([]int64, 0, len(args))
			for _, arg := range args {
				h, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid debug handle %q: %w", arg, err)
				}
				handles = append(handles, h)
			}

			table, err := symbolicate.LoadFile(opts.tablePath)
			if err != nil {
				return err
			}
			sym := symbolicate.New(table)

			out := cmd.OutOrStdout()
			if opts.hierarchy {
				for _, h := range handles {
					fmt.Fprintf(out, "%d\t%s\n", h, sym.ModuleHierarchy(opts.typeName, h))
				}
				return nil
			}
			fmt.Fprintln(out, sym.SourceDebugString(opts.typeName, handles...))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.tablePath, "table", "", "CBOR debug table")
	cmd.Flags().StringVar(&opts.typeName, "type", "", "type name of the model's root object")
	cmd.Flags().BoolVar(&opts.hierarchy, "hierarchy", false, "print the module hierarchy of each handle instead of the source call stack")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}
