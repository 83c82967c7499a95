package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain/schema"
)

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "schema",
		Short:       "Inspect schema descriptions",
		Annotations: map[string]string{"config": "none"},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a schema description and print the index it produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, err := schema.LoadFile(args[0])
			if err != nil {
				return err
			}
			def, err := db.FromSchema("check", sch)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d fields\n", args[0], sch.Len())
			for _, f := range sch.Fields() {
				fmt.Fprintf(out, "  %-24s %s\n", f.Name(), f.FieldType())
			}
			if sch.IDField() != "" {
				fmt.Fprintf(out, "id field: %s\n", sch.IDField())
			}
			fmt.Fprintf(out, "index: %s\n", def)
			return nil
		},
	})
	return cmd
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
