package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docforge/internal/tabletext"
)

var (
	parseTableInput string
	parseTableXLSX  string
	parseTableSheet string
)

var parseTableCmd = &cobra.Command{
	Use:   "parse-table",
	Short: "Parse pipe table text or a spreadsheet into JSON rows",
	RunE:  runParseTable,
}

func init() {
	parseTableCmd.Flags().StringVarP(&parseTableInput, "input", "i", "", "pipe table text file, - for stdin")
	parseTableCmd.Flags().StringVar(&parseTableXLSX, "xlsx", "", "XLSX workbook")
	parseTableCmd.Flags().StringVar(&parseTableSheet, "sheet", "", "sheet name (default first sheet)")
}

func runParseTable(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	parser := tabletext.NewParser(newLogger(cfg))

	var rows []map[string]any
	switch {
	case parseTableXLSX != "":
		f, err := os.Open(parseTableXLSX)
		if err != nil {
			return fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()
		rows, err = parser.ParseWorkbook(f, parseTableSheet)
		if err != nil {
			return err
		}
	case parseTableInput != "":
		var raw []byte
		if parseTableInput == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(parseTableInput)
		}
		if err != nil {
			return fmt.Errorf("read table: %w", err)
		}
		rows = parser.Parse(string(raw))
	default:
		return errors.New("one of --input or --xlsx is required")
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
