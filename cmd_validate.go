package main

import (
	"fmt"
	"io"
	"sort"

	"logreplay/config"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func validateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every profile and the ability catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validate(cfg, cmd.OutOrStdout())
		},
	}
}

func validate(cfg *config.Config, w io.Writer) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	profiles, set, err := loadProfiles(cfg, logger)
	if err != nil {
		return err
	}

	for _, name := range set.Names() {
		c := profiles[name]
		fmt.Fprintf(w, "ok      %-24s %d passes, %d links, %d tables\n", name, len(c.Chain.Passes), len(c.Links), len(c.Tables))
	}

	keys := make([]string, 0, len(set.Invalid))
	for k := range set.Invalid {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "invalid %-24s %v\n", k, set.Invalid[k])
	}

	catalog, err := loadCatalog(cfg, logger)
	if err != nil {
		return err
	}
	for _, name := range set.Names() {
		if len(catalog.ForProfile(name)) == 0 {
			fmt.Fprintf(w, "warning %-24s no abilities in %s\n", name, cfg.AbilityFile)
		}
	}

	if len(set.Invalid) > 0 {
		return errors.Errorf("%d invalid profile(s)", len(set.Invalid))
	}
	return nil
}
