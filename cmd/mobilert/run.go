package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/ptrace"

	"github.com/otelwasm/mobilert/loader"
	"github.com/otelwasm/mobilert/mobile"
	"github.com/otelwasm/mobilert/telemetry"
	"github.com/otelwasm/mobilert/value"
)

type runOptions struct {
	method    string
	telemetry bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [args...]",
		Short: "Invoke a method of a model",
		Long: "Invoke a method of a model. Arguments are passed as integers, " +
			"floats or booleans when they parse as such, otherwise as strings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, cleanup, err := loadModel(cmd.Context(), root, func(cfg *loader.Config) {
				if opts.telemetry && !slices.Contains(cfg.Observers, loader.ObserverTelemetry) {
					cfg.Observers = append(cfg.Observers, loader.ObserverTelemetry)
				}
			})
			if err != nil {
				return err
			}
			defer cleanup()

			result, runErr := model.Module().RunMethod(cmd.Context(), opts.method, parseArgs(args)...)
			if runErr == nil {
				fmt.Fprintln(cmd.OutOrStdout(), result.String())
			}
			if opts.telemetry {
				if err := writeTelemetry(cmd.OutOrStdout(), model.Recorder()); err != nil {
					return errors.Join(runErr, err)
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&opts.method, "method", "m", mobile.ForwardMethodName, "method to invoke")
	cmd.Flags().BoolVar(&opts.telemetry, "telemetry", false, "print the call's traces and metrics as OTLP JSON")
	return cmd
}

func parseArgs(args []string) []value.Value {
	values := make([]value.Value, 0, len(args))
	for _, arg := range args {
		values = append(values, parseArg(arg))
	}
	return values
}

func parseArg(arg string) value.Value {
	if i, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(arg, 64); err == nil {
		return value.Double(f)
	}
	if b, err := strconv.ParseBool(arg); err == nil {
		return value.Bool(b)
	}
	return value.String(arg)
}

func writeTelemetry(w io.Writer, r *telemetry.Recorder) error {
	if r == nil {
		return nil
	}
	td, md := r.Flush()
	traces, err := (&ptrace.JSONMarshaler{}).MarshalTraces(td)
	if err != nil {
		return fmt.Errorf("marshaling traces: %w", err)
	}
	metrics, err := (&pmetric.JSONMarshaler{}).MarshalMetrics(md)
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}
	fmt.Fprintf(w, "%s\n%s\n", traces, metrics)
	return nil
}
