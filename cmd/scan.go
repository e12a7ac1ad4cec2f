package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/ginjaninja78/felica-ledger/internal/card"
	"github.com/ginjaninja78/felica-ledger/internal/converter"
	"github.com/ginjaninja78/felica-ledger/internal/validation"
	"github.com/ginjaninja78/felica-ledger/internal/writer"
	"github.com/spf13/cobra"
)

var (
	scanFormat string
	scanOutput string
	scanAudit  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <dump>",
	Short: "Scan one card dump and print its ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "Output format: table, csv, json, xml, xlsx")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Write to a file instead of stdout")
	scanCmd.Flags().BoolVar(&scanAudit, "audit", false, "Print audit findings to stderr")
}

func runScan(cmd *cobra.Command, args []string) error {
	dump, err := card.ParseDumpFile(args[0])
	if err != nil {
		return err
	}

	s, err := newScanner()
	if err != nil {
		return err
	}

	snap, err := s.Scan(cmd.Context(), card.NewDumpReader(dump))
	if err != nil {
		return err
	}

	if scanAudit {
		result := validation.NewValidator().ValidateAll(snap.Ledger, snap.Dropped)
		fmt.Fprintln(cmd.ErrOrStderr(), validation.FormatErrors(result.Errors))
	}

	w, err := converter.NewWriter(scanFormat)
	if err != nil {
		return err
	}
	doc := writer.NewDocument(snap, filepath.Base(args[0]))

	if scanOutput != "" {
		if err := writer.WriteToFile(w, scanOutput, doc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d transaction(s) to %s\n", len(doc.Rows), scanOutput)
		return nil
	}
	return w.Write(cmd.OutOrStdout(), doc)
}
