package main

import (
	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/model"
	"intake/internal/output"
	"intake/internal/service"
)

func newExtractCommand(root *rootOptions) *cobra.Command {
	var (
		kind    string
		file    string
		message string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the configured AI provider on a message",
		Example: `  intake extract --kind request --message "Looking for a 3 bedroom flat in Maadi"
  intake extract --file message.txt | intake reconcile --offline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formKind, err := model.ParseFormKind(kind)
			if err != nil {
				return err
			}
			if message == "" {
				if message, err = readInput(cmd, file); err != nil {
					return err
				}
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			extractor, err := service.NewExtractor(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			resp, err := service.NewExtractionService(extractor, nil, nil).Generate(cmd.Context(), message, formKind)
			if err != nil {
				return err
			}
			if root.format(output.FormatJSON) == output.FormatJSON {
				// raw text so the output can be piped into reconcile
				_, err = cmd.OutOrStdout().Write([]byte(resp.Raw + "\n"))
				return err
			}
			return root.write(cmd, output.FormatJSON, resp)
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", string(model.KindInventory), "Form kind: Inventory or Request")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Message file, - for stdin")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message text")
	return cmd
}
