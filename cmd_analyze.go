package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"logreplay/analysis"
	"logreplay/combatlog"
	"logreplay/config"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type analyzeFlags struct {
	profile string
	events  []string
	player  int
	json    bool
	detail  bool
}

func analyzeCommand(cfg *config.Config) *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze combat log files with a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return analyze(ctx, cfg, &f, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&f.profile, "profile", "", "profile name")
	cmd.Flags().StringSliceVar(&f.events, "events", nil, "combat log file (repeatable, - for stdin)")
	cmd.Flags().IntVar(&f.player, "player", 0, "analyzed player id, overrides the log")
	cmd.Flags().BoolVar(&f.json, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&f.detail, "detail", false, "include events and links in JSON output")
	cmd.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent analyses")
	cmd.MarkFlagRequired("profile")
	cmd.MarkFlagRequired("events")

	return cmd
}

func readDocument(path string) (*combatlog.Document, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		fs, err := os.Open(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		defer fs.Close()
		r = fs
	}

	doc, err := combatlog.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return doc, nil
}

func analyze(ctx context.Context, cfg *config.Config, f *analyzeFlags, w io.Writer) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	profiles, set, err := loadProfiles(cfg, logger)
	if err != nil {
		return err
	}
	compiled, ok := profiles[f.profile]
	if !ok {
		return errors.Errorf("unknown profile %q (have %v)", f.profile, set.Names())
	}

	catalog, err := loadCatalog(cfg, logger)
	if err != nil {
		return err
	}

	opts := make([]*analysis.Options, 0, len(f.events))
	for _, path := range f.events {
		doc, err := readDocument(path)
		if err != nil {
			return err
		}
		if f.player != 0 {
			doc.Player = f.player
		}

		opts = append(opts, &analysis.Options{
			Profile:    compiled,
			Document:   doc,
			Strict:     cfg.Strict,
			KeepEvents: f.json && f.detail,
			Logger:     logger,
		})
	}

	results, err := analysis.RunMany(ctx, cfg.Workers, opts)
	if err != nil {
		return err
	}

	if f.json {
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
		enc.SetIndent("", "    ")
		return errors.WithStack(enc.Encode(results))
	}

	for i, r := range results {
		if len(results) > 1 {
			fmt.Fprintf(w, "# %s\n", f.events[i])
		}
		if err := analysis.Render(w, r, catalog); err != nil {
			return err
		}
	}
	return nil
}
