package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/model"
	"intake/internal/output"
	"intake/internal/service"
)

type reconcileOptions struct {
	kind    string
	file    string
	catalog string
	current string
	offline bool
}

func newReconcileCommand(root *rootOptions) *cobra.Command {
	opts := &reconcileOptions{}
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a raw AI extraction into a form",
		Long: `Reconcile parses a raw AI extraction and builds a complete Inventory or
Request form from it, reporting which fields the AI left unfilled.

Catalogs are read from a YAML file with property_types, tags, locations
and users keys. Unless --offline is set, locations missing from the
catalog are looked up on the backend.`,
		Example: `  intake reconcile --kind request --file extraction.json --catalog catalogs.yaml
  cat extraction.json | intake reconcile --file - --offline -o table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseFormKind(opts.kind)
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, opts.file)
			if err != nil {
				return err
			}
			catalogs, err := loadCatalogs(opts.catalog)
			if err != nil {
				return err
			}
			current := model.InitialFormState(kind)
			if opts.current != "" {
				if current, err = loadForm(opts.current); err != nil {
					return err
				}
			}

			cfg := config.FromEnv()
			var lookup service.LocationLookup
			if !opts.offline {
				backend := service.NewBackendClient(&cfg.Backend, nil)
				lookup = service.NewLocationClient(backend, nil, 0, cfg.Reconcile.LocationLimit)
			}
			engine := service.NewReconciler(lookup, &cfg.Reconcile)

			result, err := engine.Reconcile(cmd.Context(), raw, kind, catalogs, current)
			if err != nil {
				return err
			}
			if root.format(output.FormatJSON) == output.FormatTable {
				return root.write(cmd, output.FormatTable, unfilledView(result.UnfilledFields))
			}
			return root.write(cmd, output.FormatJSON, result)
		},
	}

	cmd.Flags().StringVarP(&opts.kind, "kind", "k", string(model.KindInventory), "Form kind: Inventory or Request")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "-", "Extraction file, - for stdin")
	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "YAML catalog file")
	cmd.Flags().StringVar(&opts.current, "current", "", "JSON form state to carry over")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Only match locations against the catalog file")
	return cmd
}

// unfilledView lists every tracked field with its unfilled flag
type unfilledView model.UnfilledFields

func (u unfilledView) Table() output.Data {
	names := make([]string, 0, len(u))
	for name := range u {
		names = append(names, name)
	}
	slices.Sort(names)

	data := output.Data{Headers: []string{"Field", "Unfilled"}}
	for _, name := range names {
		data.Rows = append(data.Rows, []string{name, strconv.FormatBool(u[name])})
	}
	return data
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "" || path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(raw), nil
}

func loadCatalogs(path string) (*model.Catalogs, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var catalogs model.Catalogs
	if err := yaml.Unmarshal(raw, &catalogs); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return &catalogs, nil
}

func loadForm(path string) (model.FormState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.FormState{}, fmt.Errorf("failed to read form: %w", err)
	}
	var form model.FormState
	if err := json.Unmarshal(raw, &form); err != nil {
		return model.FormState{}, fmt.Errorf("failed to parse form %s: %w", path, err)
	}
	return form, nil
}
