package cmd

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/felica-ledger/internal/classifier"
	"github.com/ginjaninja78/felica-ledger/internal/decoder"
	"github.com/ginjaninja78/felica-ledger/internal/types"
	"github.com/ginjaninja78/felica-ledger/internal/writer"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:         "decode <hex>...",
	Short:       "Decode one 16-byte history block",
	Long:        "Decode one history block given as hex. Arguments are joined, so spaced bytes work too.",
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{skipConfig: "true"},
	RunE:        runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	block, err := decoder.ParseHex(strings.Join(args, ""))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}

	rec, err := decoder.Decode(block)
	if err != nil {
		return err
	}

	kind, rule := classifier.ClassifyWithRule(classifier.Input{
		MachineType: rec.MachineTypeCode,
		ProcessType: rec.ProcessTypeCode,
		Station:     rec.Station,
	})
	tx := rec.Transaction()
	tx.Kind = kind

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Block:        %s\n", decoder.HexDump(block))
	fmt.Fprintf(out, "Machine type: 0x%02X %s\n", rec.MachineTypeCode, classifier.MachineTitle(rec.MachineTypeCode))
	fmt.Fprintf(out, "Process type: 0x%02X %s\n", rec.ProcessTypeCode, classifier.ProcessTitle(rec.ProcessTypeCode))
	fmt.Fprintf(out, "Date:         %s\n", rec.Date)
	fmt.Fprintf(out, "Station:      %s\n", rec.Station.Key())
	fmt.Fprintf(out, "Balance:      ¥%d\n", rec.Balance)
	fmt.Fprintf(out, "Kind:         %s (%s)\n", tx.KindTag(), rule)

	d := writer.Describe(tx)
	fmt.Fprintf(out, "Display:      %s / %s\n", d.Title, d.Category)

	if b, ok := kind.(types.Bus); ok {
		fmt.Fprintf(out, "Bus stop:     operator 0x%02X, stop 0x%02X\n", b.Stop.OperatorCode, b.Stop.StopCode)
	}
	return nil
}
