package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ginjaninja78/felica-ledger/internal/stations"
	"github.com/ginjaninja78/felica-ledger/internal/types"
	"github.com/spf13/cobra"
)

var stationsFile string

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "Inspect the station table",
}

var stationsLookupCmd = &cobra.Command{
	Use:   "lookup <area> <line> <station>",
	Short: "Look up a station by its code triple",
	Long: `Look up a station. Codes accept decimal or 0x-prefixed hex:

  felica stations lookup 0 0x25 0x0D`,
	Args: cobra.ExactArgs(3),
	RunE: runStationsLookup,
}

var stationsInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Load the station table and report counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := stationsPath()
		if err != nil {
			return err
		}
		_, stats, err := stations.Load(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "File:       %s\n", path)
		fmt.Fprintf(out, "Loaded:     %d\n", stats.Loaded)
		fmt.Fprintf(out, "Skipped:    %d\n", stats.Skipped)
		fmt.Fprintf(out, "Duplicates: %d\n", stats.Duplicates)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stationsCmd)
	stationsCmd.AddCommand(stationsLookupCmd, stationsInfoCmd)

	stationsCmd.PersistentFlags().StringVar(&stationsFile, "file", "", "Station file (default: stations_file from config)")
}

func stationsPath() (string, error) {
	if stationsFile != "" {
		return stationsFile, nil
	}
	if appConfig.StationsFile == "" {
		return "", errors.New("no station file: set stations_file or pass --file")
	}
	return appConfig.StationsFile, nil
}

func runStationsLookup(cmd *cobra.Command, args []string) error {
	var codes [3]int
	for i, arg := range args {
		v, err := strconv.ParseInt(arg, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid code %q: %w", arg, err)
		}
		codes[i] = int(v)
	}

	path, err := stationsPath()
	if err != nil {
		return err
	}
	table, err := loadStations(path)
	if err != nil {
		return err
	}

	key := types.StationKey{Area: codes[0], Line: codes[1], Station: codes[2]}
	e, ok := table.Lookup(key)
	if !ok {
		return fmt.Errorf("station %s not found", key)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Station: %s\n", e.Name)
	if e.RomanjiName != "" {
		fmt.Fprintf(out, "Romaji:  %s\n", e.RomanjiName)
	}
	fmt.Fprintf(out, "Company: %s\n", e.Company)
	fmt.Fprintf(out, "Line:    %s\n", e.Line)
	if e.Remark.Kind != stations.RemarkNone {
		fmt.Fprintf(out, "Remark:  %s\n", e.Remark)
	}
	return nil
}
