// Package main provides the dicomsync binary entry point. Dicomsync
// reconciles DICOM file headers with a curated target header: extract,
// diff, safety-check, and apply.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/radstack/dicomsync/archive"
	"github.com/radstack/dicomsync/config"
	"github.com/radstack/dicomsync/diff"
	"github.com/radstack/dicomsync/edit"
	"github.com/radstack/dicomsync/header"
)

const (
	Version = "0.1.0"
	appName = "dicomsync"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:     appName,
		Short:   "Reconcile DICOM headers with curated metadata",
		Version: Version,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(newExtractCmd(&configPath))
	root.AddCommand(newDiffCmd(&configPath))
	root.AddCommand(newApplyCmd(&configPath))
	return root
}

func loadConfig(configPath string) (*config.Config, *slog.Logger, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.NewLoader(nil).Load()
	}
	if err != nil {
		return nil, nil, err
	}

	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

func newExtractCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <path>",
		Short: "Print the representative header of a DICOM file or archive as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			d, err := representativeHeader(args[0], cfg, logger)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		},
	}
}

func newDiffCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <path> <target.json>",
		Short: "Show the changes needed to reconcile a file or archive with a target header",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			target, err := readTargetHeader(args[1])
			if err != nil {
				return err
			}
			local, err := representativeHeader(args[0], cfg, logger)
			if err != nil {
				return err
			}
			changes, messages := diff.NewEngine(logger).Compare(local, target)
			for _, msg := range messages {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
			for _, change := range changes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %v\n", change.Kind, change.Keyword, change.Target)
			}
			return nil
		},
	}
}

func newApplyCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <path> <target.json>",
		Short: "Safely write a target header into a DICOM file or archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			target, err := readTargetHeader(args[1])
			if err != nil {
				return err
			}
			opts := edit.Options{
				Logger:     logger,
				ScratchDir: cfg.Scratch.Dir,
			}
			if cfg.Metrics.Enabled {
				opts.Metrics = edit.NewProm(cfg.Metrics.Namespace)
			}
			out, err := edit.Apply(args[0], target, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func representativeHeader(path string, cfg *config.Config, logger *slog.Logger) (header.Dict, error) {
	extractor := header.NewExtractor(logger)
	if !archive.IsZip(path) {
		return extractor.Extract(path)
	}
	tmpDir, err := os.MkdirTemp(cfg.Scratch.Dir, "dicomsync-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)
	files, err := archive.Extract(path, tmpDir)
	if err != nil {
		return nil, err
	}
	return extractor.Representative(files), nil
}

func readTargetHeader(path string) (header.Dict, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading target header: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing target header: %w", err)
	}
	return header.FromRaw(raw), nil
}
