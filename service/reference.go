package service

import (
	"context"
	"fmt"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/config"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pipeline"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/logger"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/tabular"
	"golang.org/x/sync/errgroup"
)

// ReferenceService turns the four reference tables of a source into the
// typed lookups one audit needs.
type ReferenceService struct {
	source ReferenceSource
	keys   config.SheetKeys
	fix    config.VendorFix
}

func NewReferenceService(source ReferenceSource, keys config.SheetKeys, fix config.VendorFix) *ReferenceService {
	return &ReferenceService{source: source, keys: keys, fix: fix}
}

// NewSource builds the configured reference source wrapped in a cache.
func NewSource(ctx context.Context, cfg *config.ReferenceConfig) (*CachedSource, error) {
	var src ReferenceSource
	switch cfg.Source {
	case config.SourceSmartsheet:
		src = NewSmartsheetService(&cfg.Smartsheet)
	case config.SourceGoogleSheets:
		gs, err := NewGoogleSheetsService(ctx, &cfg.GoogleSheets)
		if err != nil {
			return nil, err
		}
		src = gs
	case config.SourceDir:
		src = NewDirSource(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown reference source %q", cfg.Source)
	}
	return NewCachedSource(src, cfg.CacheTTL), nil
}

// Load fetches the ignore list, cleans list, price table and vendor map
// concurrently.
func (s *ReferenceService) Load(ctx context.Context) (*pipeline.References, error) {
	var ignore, cleans, prices, cleaners *tabular.Table

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(key string, dst **tabular.Table) {
		g.Go(func() error {
			t, err := s.source.Fetch(gctx, key)
			if err != nil {
				return fmt.Errorf("reference table %s: %w", key, err)
			}
			*dst = t
			return nil
		})
	}
	fetch(s.keys.Ignore, &ignore)
	fetch(s.keys.Cleans, &cleans)
	fetch(s.keys.Prices, &prices)
	fetch(s.keys.Cleaners, &cleaners)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	refs := &pipeline.References{}
	var err error
	if refs.Ignore, err = pipeline.ParseIgnoreList(ignore); err != nil {
		return nil, err
	}
	if refs.CleanTypes, err = pipeline.ParseCleanTypes(cleans); err != nil {
		return nil, err
	}
	var skipped int
	if refs.Prices, skipped, err = pipeline.ParsePriceTable(prices); err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Warn(ctx, "price table has non-numeric cells", "skipped", skipped)
	}
	if refs.Vendors, err = pipeline.ParseVendorMap(cleaners, s.fix.Issue, s.fix.Fix); err != nil {
		return nil, err
	}
	return refs, nil
}

// CleanTypes returns the official cleans list only.
func (s *ReferenceService) CleanTypes(ctx context.Context) ([]model.CleanType, error) {
	t, err := s.source.Fetch(ctx, s.keys.Cleans)
	if err != nil {
		return nil, fmt.Errorf("reference table %s: %w", s.keys.Cleans, err)
	}
	list, err := pipeline.ParseCleanTypes(t)
	if err != nil {
		return nil, err
	}
	return list.Entries(), nil
}
