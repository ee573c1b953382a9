package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/jd-highlighter/internal/db"
	"github.com/jonathan/jd-highlighter/internal/server"
)

var (
	servePort       int
	serveCategories string
	serveLegend     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that highlights submitted descriptions and, when DATABASE_URL is set, stored job postings.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config, 8080)")
	serveCmd.Flags().StringVar(&serveCategories, "categories", "", "Path to custom categories JSON")
	serveCmd.Flags().StringVar(&serveLegend, "legend", "", "Path to legend JSON matching the categories")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, reg, err := loadSettings(serveCategories, serveLegend)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	leg, err := cfg.LoadLegend(reg)
	if err != nil {
		return fmt.Errorf("failed to load legend: %w", err)
	}

	ctx := cmd.Context()
	var store server.PostingStore
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		store = database
	} else {
		_, _ = fmt.Fprintln(os.Stderr, "DATABASE_URL not set; job posting endpoints are disabled")
	}

	srvCfg := server.ConfigFrom(cfg)
	srvCfg.Logger = newLogger(os.Stderr)

	srv, err := server.New(reg, leg, store, srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
