package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jd-highlighter/internal/observability"
)

var legendCmd = &cobra.Command{
	Use:   "legend",
	Short: "Print the highlight legend",
	Long:  "Prints one legend entry per category in precedence order, with its color and example strings.",
	RunE:  runLegend,
}

var (
	legendCategories string
	legendFile       string
	legendJSON       bool
)

func init() {
	legendCmd.Flags().StringVar(&legendCategories, "categories", "", "Path to custom categories JSON")
	legendCmd.Flags().StringVar(&legendFile, "legend", "", "Path to legend JSON matching the categories")
	legendCmd.Flags().BoolVar(&legendJSON, "json", false, "Print the legend as JSON")

	rootCmd.AddCommand(legendCmd)
}

func runLegend(cmd *cobra.Command, _ []string) error {
	cfg, reg, err := loadSettings(legendCategories, legendFile)
	if err != nil {
		return err
	}

	leg, err := cfg.LoadLegend(reg)
	if err != nil {
		return fmt.Errorf("failed to load legend: %w", err)
	}

	if legendJSON {
		data, err := json.MarshalIndent(leg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal legend: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintLegend(leg)
	return nil
}
