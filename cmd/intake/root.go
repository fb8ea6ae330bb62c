package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"intake/internal/logging"
	"intake/internal/output"
)

type rootOptions struct {
	output   string
	logLevel string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Listing intake tools",
		Long: `Turn AI extractions of WhatsApp messages into listing forms and
work with the brokerage backend from the command line.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := output.ParseFormat(opts.output); err != nil {
				return err
			}
			logging.Configure(logging.Options{Level: opts.logLevel, Format: "console", Output: os.Stderr})
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "Output format: table, json, yaml (default depends on the command)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(newReconcileCommand(opts))
	cmd.AddCommand(newExtractCommand(opts))
	cmd.AddCommand(newCatalogCommand(opts))
	cmd.AddCommand(newMessagesCommand(opts))
	return cmd
}

// format resolves --output, falling back to fallback when it is unset.
// An empty fallback auto-detects from the terminal.
func (o *rootOptions) format(fallback output.Format) output.Format {
	f, _ := output.ParseFormat(o.output)
	if f != "" {
		return f
	}
	return output.DetectFormat(fallback)
}

// write renders data on the command's stdout
func (o *rootOptions) write(cmd *cobra.Command, fallback output.Format, data any) error {
	if err := output.NewFormatter(o.format(fallback)).Format(cmd.OutOrStdout(), data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
