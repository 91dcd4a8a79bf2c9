package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goblimey/go-ntrip-analyser/caster"
	"github.com/goblimey/go-ntrip-analyser/config"
	"github.com/goblimey/go-ntrip-analyser/logging"
)

const formatTable = "table"

func newSourceTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sourcetable",
		Short: "List the streams offered by a caster",
		Long: `Sourcetable fetches the caster's source table and lists the streams in
it, one per line, giving the mountpoint, identifier, format, navigation
system, country, latitude and longitude.  The JSON and YAML output also
include the casters and networks that the table lists.`,
		Args: cobra.NoArgs,
		RunE: runSourceTable,
	}
	addConnectionFlags(cmd)
	cmd.Flags().StringP("format", "f", formatTable, "output format: table, json or yaml")
	return cmd
}

func runSourceTable(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != formatTable && format != formatJSON && format != formatYAML {
		return fmt.Errorf("unknown output format %q - must be table, json or yaml", format)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	conn := cfg.Connection
	if err := applyConnectionFlags(cmd, &conn); err != nil {
		return err
	}
	if conn.Host == "" {
		return config.ErrMissingHost
	}

	logs, err := logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logs.Close()

	client := caster.New(logs.Logger("caster"), caster.WithDialTimeout(cfg.DialTimeout))
	table, err := client.FetchSourceTableDetail(cmd.Context(),
		conn.Host, conn.Port, conn.UseTLS, conn.Username, conn.Password)
	if err != nil {
		return err
	}

	return writeSourceTable(cmd.OutOrStdout(), table, format)
}

func writeSourceTable(w io.Writer, table *caster.SourceTable, format string) error {
	switch format {
	case formatJSON:
		j, err := json.MarshalIndent(table, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", j)
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(table); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Fprintf(w, "%-20s %-20s %-12s %-12s %-4s %s %s\n",
		"MOUNTPOINT", "IDENTIFIER", "FORMAT", "NAV SYSTEM", "CTRY", "LAT", "LON")
	for i := range table.Streams {
		fmt.Fprintln(w, table.Streams[i].String())
	}
	_, err := fmt.Fprintf(w, "%d streams\n", len(table.Streams))
	return err
}
