package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jonathan/jd-highlighter/internal/config"
	"github.com/jonathan/jd-highlighter/internal/highlight"
)

// loadSettings resolves the configuration and applies command-line file
// overrides before loading the registry. A categories override without a
// legend override drops the configured legend, which describes the
// configured categories rather than the new ones.
func loadSettings(categoriesFile, legendFile string) (*config.Config, *highlight.Registry, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if categoriesFile != "" || legendFile != "" {
		override := config.Config{CategoriesFile: categoriesFile, LegendFile: legendFile}
		merged := override.MergeWithDefaults(*cfg)
		if categoriesFile != "" && legendFile == "" {
			merged.LegendFile = ""
		}
		if err := merged.Validate(); err != nil {
			return nil, nil, err
		}
		cfg = &merged
	}
	cfg.Verbose = cfg.Verbose || verbose

	reg, err := cfg.LoadRegistry()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return cfg, reg, nil
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func newLogger(w io.Writer) *log.Logger {
	return log.New(w, "", log.LstdFlags)
}
