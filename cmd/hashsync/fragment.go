package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geoportal-dev/hashsync/internal/config"
	"github.com/geoportal-dev/hashsync/internal/errors"
	"github.com/geoportal-dev/hashsync/pkg/hashcodec"
	"github.com/geoportal-dev/hashsync/pkg/hashparam"
)

type configLoader func() (*config.Config, error)

func encodeCmd(load configLoader) *cobra.Command {
	var (
		path         string
		keyOrder     []string
		alphabetical bool
	)

	cmd := &cobra.Command{
		Use:   "encode key=value...",
		Short: "Build a URL fragment from logical keys",
		Long: `Build a URL fragment from logical key=value pairs. Values are parsed by
each key's codec, so defaults are pruned and numbers normalized.

Examples:
  hashsync encode zoom=12 lat=51.2734567 layers=roads,rivers
  hashsync encode --path /map --order background,zoom zoom=3 background=dark`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			table, err := cfg.Table()
			if err != nil {
				return err
			}
			update, err := parsePairs(args)
			if err != nil {
				return err
			}

			raw, _ := hashparam.ApplyCodecs(update, table)
			order := keyOrder
			if order == nil {
				order = table.KeyOrder()
			}
			hash := hashparam.Build(path, raw, table.AliasOrder(order),
				alphabetical || table.IsAlphabetical())
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "/", "Fragment path")
	cmd.Flags().StringSliceVar(&keyOrder, "order", nil, "Logical keys to serialize first")
	cmd.Flags().BoolVar(&alphabetical, "alphabetical", false, "Sort the remaining keys")
	return cmd
}

// parsePairs turns key=value arguments into an update. An empty value
// removes the key.
func parsePairs(args []string) (*hashcodec.Partial, error) {
	update := &hashcodec.Partial{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.New("H140").
				WithDetail(fmt.Sprintf("Argument %q is not key=value", arg)).
				WithSuggestion("Write arguments as zoom=12")
		}
		if value == "" {
			update.SetAny(key, nil)
			continue
		}
		update.SetAny(key, value)
	}
	return update, nil
}

func decodeCmd(load configLoader) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "decode fragment",
		Short: "Decode a URL fragment into logical values",
		Long: `Decode a URL fragment into logical values. Unknown parameters are
shown under their URL name with their raw value.

Examples:
  hashsync decode '#/map?z=12&lat=51.27&l=roads,rivers'
  hashsync decode --json '#/?z=3'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			table, err := cfg.Table()
			if err != nil {
				return err
			}

			raw := hashparam.Parse(args[0])
			path, _ := hashparam.SplitFragment(args[0])
			values := hashparam.Decode(raw, table)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"path": path, "values": values})
			}

			fmt.Fprintf(out, "path: %s\n", path)
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				marker := " "
				if raw.Has(table.Alias(k)) {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-10s %v\n", marker, k, values[k])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func diffCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "diff before after",
		Short: "List logical keys that differ between two fragments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			table, err := cfg.Table()
			if err != nil {
				return err
			}

			changed, removed := hashparam.Diff(hashparam.Parse(args[0]), hashparam.Parse(args[1]))
			out := cmd.OutOrStdout()
			if len(changed) == 0 {
				success(out, "fragments are equal")
				return nil
			}
			info(out, "changed: %s", strings.Join(hashparam.DecodeKeys(changed, table), " "))
			if len(removed) > 0 {
				info(out, "removed: %s", strings.Join(hashparam.DecodeKeys(removed, table), " "))
			}
			return nil
		},
	}
}
