package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	searchuc "github.com/kailas-cloud/suntan/internal/usecase/search"
)

func (a *app) newSearchCmd() *cobra.Command {
	var (
		schemaPath string
		fields     []string
		limit      int
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a ranked free-text query against the index",
		Example: `  suntan search "ada lovelace"
  suntan search --fields title,body --limit 5 engine`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("schema") {
				a.cfg.Schema.Path = schemaPath
			}
			sch, err := a.loadSchema()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			engine, err := a.openEngine(ctx, sch)
			if err != nil {
				return err
			}
			defer a.closeEngine(engine)

			svc := searchuc.New(engine).WithMaxLimit(a.cfg.HTTP.MaxSearchLimit)
			res, err := svc.Search(ctx, strings.Join(args, " "), fields, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintf(out, "%d matching documents\n", res.Total)
			for _, e := range res.Entries {
				fmt.Fprintf(out, "%8.4f  %s\n", e.Score, e.ID)
				for _, name := range sortedKeys(e.Fields) {
					fmt.Fprintf(out, "          %s: %s\n", name, e.Fields[name])
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema description file")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to search (default: all text fields)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of hits")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")
	return cmd
}
