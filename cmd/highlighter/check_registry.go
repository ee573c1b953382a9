package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jd-highlighter/internal/observability"
)

var checkRegistryCmd = &cobra.Command{
	Use:   "check-registry",
	Short: "Validate a custom category registry",
	Long:  "Loads a categories file, compiles every matcher and checks the optional legend against it. Exits non-zero on the first configuration error.",
	RunE:  runCheckRegistry,
}

var (
	checkCategories string
	checkLegend     string
)

func init() {
	checkRegistryCmd.Flags().StringVar(&checkCategories, "categories", "", "Path to categories JSON")
	checkRegistryCmd.Flags().StringVar(&checkLegend, "legend", "", "Path to legend JSON (optional)")

	if err := checkRegistryCmd.MarkFlagRequired("categories"); err != nil {
		panic(fmt.Sprintf("failed to mark categories flag as required: %v", err))
	}

	rootCmd.AddCommand(checkRegistryCmd)
}

func runCheckRegistry(cmd *cobra.Command, _ []string) error {
	cfg, reg, err := loadSettings(checkCategories, checkLegend)
	if err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	observability.NewPrinter(out).PrintRegistry(reg)

	if cfg.LegendFile != "" {
		leg, err := cfg.LoadLegend(reg)
		if err != nil {
			return fmt.Errorf("failed to load legend: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Legend OK: %d entries\n", leg.Len())
	}

	_, _ = fmt.Fprintf(out, "Registry OK: %d categories\n", reg.Len())
	return nil
}
