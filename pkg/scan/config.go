package scan

import (
	"fmt"
	"time"

	"geoscan/pkg/config"
	"geoscan/pkg/radio"
)

// FromConfig builds validated settings for one technology from its config section.
// A Wi-Fi section without channels scans every channel.
func FromConfig(tech radio.Technology, c config.ScanConfig) (Settings, error) {
	s := Settings{
		Technology:        tech,
		MaxResults:        c.MaxResults,
		TimeoutPerChannel: time.Duration(c.TimeoutPerChannel),
		TimeoutPerScan:    time.Duration(c.TimeoutPerScan),
	}

	if tech == radio.TechWiFi {
		if len(c.Channels) == 0 {
			s.Channels = radio.AllChannels
		} else {
			mask, err := radio.MaskOf(c.Channels...)
			if err != nil {
				return Settings{}, fmt.Errorf("%w: %s: %v", ErrConfig, tech, err)
			}
			s.Channels = mask
		}
	}

	for _, name := range c.Types {
		t, err := radio.ParseSignalType(name)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %s: %v", ErrConfig, tech, err)
		}
		s.Types |= radio.SetOf(t)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
