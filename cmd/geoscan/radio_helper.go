package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"geoscan/pkg/config"
	"geoscan/pkg/radio"
	"geoscan/pkg/radio/mockradio"
)

// initRadio returns the transceiver and the recovery hook run on reinit.
func initRadio(cfg *config.Config) (radio.Radio, func(context.Context) error, error) {
	switch strings.ToLower(cfg.Radio.Provider) {
	case "", "mock":
		slog.Info("Radio Source: Mock")
		c := mockradio.NewClient(mockConfig(cfg.Radio.Mock))
		return c, c.Reset, nil
	default:
		return nil, nil, fmt.Errorf("unknown radio provider %q", cfg.Radio.Provider)
	}
}

func mockConfig(m config.MockRadioConfig) mockradio.Config {
	return mockradio.Config{
		Latency:             time.Duration(m.Latency),
		AccessPoints:        m.AccessPoints,
		Satellites:          m.Satellites,
		EnergyPerChannelUAh: m.EnergyPerChannelUAh,
		GNSSEnergyUAh:       m.GNSSEnergyUAh,
		Seed:                m.Seed,
	}
}
