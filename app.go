package main

import (
	"os"

	"logreplay/config"
	"logreplay/profile"
	"logreplay/spelldata"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// loadProfiles loads and compiles every valid profile of the configured
// directory.
func loadProfiles(cfg *config.Config, logger *zap.Logger) (map[string]*profile.Compiled, *profile.Set, error) {
	set, err := profile.LoadDir(cfg.ProfileDir, logger)
	if err != nil {
		return nil, nil, err
	}

	compiled := make(map[string]*profile.Compiled, set.Len())
	for _, name := range set.Names() {
		p, _ := set.Get(name)

		c, err := p.Compile()
		if err != nil {
			return nil, nil, errors.Wrapf(err, "profile %s (%s)", name, p.SourceFile)
		}
		compiled[name] = c
	}

	return compiled, set, nil
}

// loadCatalog reads the ability catalog. A missing file is not fatal: reports
// then show ability ids instead of names.
func loadCatalog(cfg *config.Config, logger *zap.Logger) (*spelldata.Catalog, error) {
	c, err := spelldata.Load(cfg.AbilityFile)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			logger.Warn("ability catalog not found", zap.String("file", cfg.AbilityFile))
			return spelldata.Empty(), nil
		}
		return nil, err
	}

	logger.Debug("ability catalog loaded", zap.Int("abilities", c.Len()))
	return c, nil
}
