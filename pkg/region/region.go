// Package region holds the read-only LoRaWAN regional profiles consumed by the MAC collaborator.
package region

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ADRSlots is the number of entries in an ADR custom list.
const ADRSlots = 16

// ErrUnknownRegion is returned by Lookup for regions without a profile.
var ErrUnknownRegion = errors.New("unknown region")

// Profile is the retransmission policy of one region.
type Profile struct {
	Region        string          `yaml:"region" json:"region"`
	CustomNbTrans uint8           `yaml:"custom_nb_trans" json:"custom_nb_trans"`
	ADRCustomList [ADRSlots]uint8 `yaml:"-" json:"adr_custom_list"`
}

type rawProfile struct {
	Region        string  `yaml:"region"`
	CustomNbTrans uint8   `yaml:"custom_nb_trans"`
	ADRCustomList []uint8 `yaml:"adr_custom_list"`
}

//go:embed profiles.yaml
var profilesYAML []byte

var profiles = mustParse(profilesYAML)

func mustParse(data []byte) map[string]Profile {
	p, err := parse(data)
	if err != nil {
		panic(fmt.Sprintf("region: embedded profiles: %v", err))
	}
	return p
}

func parse(data []byte) (map[string]Profile, error) {
	var raw []rawProfile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]Profile, len(raw))
	for _, r := range raw {
		key := strings.ToUpper(r.Region)
		if key == "" {
			return nil, errors.New("profile without region")
		}
		if len(r.ADRCustomList) != ADRSlots {
			return nil, fmt.Errorf("%s: adr_custom_list has %d entries, want %d", key, len(r.ADRCustomList), ADRSlots)
		}
		if r.CustomNbTrans == 0 {
			return nil, fmt.Errorf("%s: custom_nb_trans must be > 0", key)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%s: duplicate profile", key)
		}
		p := Profile{Region: key, CustomNbTrans: r.CustomNbTrans}
		copy(p.ADRCustomList[:], r.ADRCustomList)
		out[key] = p
	}
	return out, nil
}

// Lookup returns a copy of the profile for a region identifier (case-insensitive).
func Lookup(id string) (Profile, error) {
	p, ok := profiles[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownRegion, id)
	}
	return p, nil
}

// Regions lists the known region identifiers in sorted order.
func Regions() []string {
	out := make([]string, 0, len(profiles))
	for k := range profiles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
