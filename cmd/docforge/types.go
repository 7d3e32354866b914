package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the document types of the schema file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := loadSchemas(cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		for _, name := range reg.ListTypes() {
			c, _ := reg.Get(name)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tdirect=%d reference=%d post=[%s]\n",
				name, len(c.DirectFields), len(c.ReferenceFields), strings.Join(c.PostProcessors, ","))
		}
		return nil
	},
}
