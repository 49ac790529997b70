package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mod2fix/internal/classify"
)

var signaturesCmd = &cobra.Command{
	Use:   "signatures",
	Short: "List the failure signatures in effect",
	Long:  `List the built-in failure signatures followed by any [[signature]] rows from mod2fix.toml.`,
	Args:  cobra.NoArgs,
	RunE:  runSignatures,
}

func init() {
	signaturesCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runSignatures(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	table := cfg.Table()
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "pretty", "":
		return renderSignaturesPretty(cmd.OutOrStdout(), table)
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

func renderSignaturesPretty(out io.Writer, table classify.Table) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCATEGORY\tMATCHES")
	for _, sig := range table {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", sig.Code.ID(), sig.Category, strings.Join(sig.Match, " | "))
	}
	return tw.Flush()
}
