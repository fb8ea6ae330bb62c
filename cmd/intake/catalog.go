package main

import (
	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/logging"
	"intake/internal/model"
	"intake/internal/output"
	"intake/internal/service"
)

func newCatalogCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Work with backend catalogs",
	}
	cmd.AddCommand(newCatalogDumpCommand(root))
	return cmd
}

func newCatalogDumpCommand(root *rootOptions) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the dropdown options a form kind renders against",
		Long: `Dump fetches property types, tags and users from the backend and prints
them with the fixed vocabularies. The YAML output can be passed to
reconcile --catalog.`,
		Example: `  intake catalog dump --kind request > catalogs.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formKind, err := model.ParseFormKind(kind)
			if err != nil {
				return err
			}
			cfg := config.FromEnv()
			catalogs := service.NewCatalogService(service.NewBackendClient(&cfg.Backend, nil), nil, 0)

			opts := catalogs.Load(cmd.Context(), formKind)
			if opts.Error != "" {
				logging.Warn().Str("error", opts.Error).Msg("⚠️  Serving fallback catalogs")
			}
			return root.write(cmd, output.FormatYAML, opts)
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", string(model.KindInventory), "Form kind: Inventory or Request")
	return cmd
}
