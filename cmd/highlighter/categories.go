package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/jd-highlighter/internal/highlight"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Print the built-in category file",
	Long:  "Prints the built-in category definitions as JSON. Edit the output and pass it to --categories to customize highlighting.",
	RunE:  runCategories,
}

var categoriesOutput string

func init() {
	categoriesCmd.Flags().StringVarP(&categoriesOutput, "out", "o", "", "Output file path (default stdout)")
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, _ []string) error {
	return writeOutput(categoriesOutput, highlight.DefaultCategoryFile(), cmd.OutOrStdout())
}
