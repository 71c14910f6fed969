package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"geoscan/pkg/config"
	"geoscan/pkg/radio"
	"geoscan/pkg/scan"
)

// GroupConfigFrom builds the group configuration from the effective config.
// Technologies that are disabled in their section are left out of the order.
func GroupConfigFrom(ctx context.Context, p config.Provider) (GroupConfig, error) {
	cfg := p.AppConfig()
	gc := GroupConfig{
		Period: p.GroupPeriod(ctx),
		Mode:   Mode(strings.ToLower(p.GroupMode(ctx))),
	}
	for _, name := range cfg.ScanGroup.Order {
		tech, err := radio.ParseTechnology(name)
		if err != nil {
			return GroupConfig{}, fmt.Errorf("%w: %v", scan.ErrConfig, err)
		}
		if !sectionFor(cfg, tech).Enabled {
			continue
		}
		gc.Order = append(gc.Order, tech)
	}
	if err := gc.Validate(); err != nil {
		return GroupConfig{}, err
	}
	return gc, nil
}

func sectionFor(cfg *config.Config, tech radio.Technology) config.ScanConfig {
	if tech == radio.TechGNSS {
		return cfg.GNSS
	}
	return cfg.WiFi
}

// NewScanJobs creates one executor per technology in the order, all sharing the radio.
func NewScanJobs(cfg *config.Config, order []radio.Technology, r radio.Radio, clock scan.Clock, logger *slog.Logger) ([]*ScanJob, error) {
	jobs := make([]*ScanJob, 0, len(order))
	for _, tech := range order {
		settings, err := scan.FromConfig(tech, sectionFor(cfg, tech))
		if err != nil {
			return nil, err
		}
		st := &scan.SettingsStore{}
		if err := st.Init(settings); err != nil {
			return nil, err
		}
		var l *slog.Logger
		if logger != nil {
			l = logger.With("technology", tech)
		}
		jobs = append(jobs, NewScanJob(tech, scan.NewExecutor(r, st, clock, l)))
	}
	return jobs, nil
}
