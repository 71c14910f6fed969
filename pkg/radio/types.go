package radio

import (
	"fmt"
	"strings"
)

// Technology identifies a scan kind.
type Technology string

const (
	TechWiFi Technology = "wifi"
	TechGNSS Technology = "gnss"
)

// ParseTechnology parses a technology name.
func ParseTechnology(s string) (Technology, error) {
	switch Technology(strings.ToLower(strings.TrimSpace(s))) {
	case TechWiFi:
		return TechWiFi, nil
	case TechGNSS:
		return TechGNSS, nil
	}
	return "", fmt.Errorf("unknown technology %q", s)
}

// Channel is a 2.4 GHz Wi-Fi channel number (1-14). GNSS detections use 0.
type Channel uint8

// MaxChannel is the highest Wi-Fi channel.
const MaxChannel Channel = 14

// ChannelMask is a bitset over channels; bit 0 is channel 1.
type ChannelMask uint16

// AllChannels covers channels 1 to 14.
const AllChannels ChannelMask = 1<<MaxChannel - 1

// MaskOf builds a mask from channel numbers. Out-of-range channels are rejected.
func MaskOf(channels ...int) (ChannelMask, error) {
	var m ChannelMask
	for _, c := range channels {
		if c < 1 || c > int(MaxChannel) {
			return 0, fmt.Errorf("channel %d out of range 1-%d", c, MaxChannel)
		}
		m |= 1 << (c - 1)
	}
	return m, nil
}

// Has reports whether ch is in the mask.
func (m ChannelMask) Has(ch Channel) bool {
	if ch < 1 || ch > MaxChannel {
		return false
	}
	return m&(1<<(ch-1)) != 0
}

// Len returns the number of channels set.
func (m ChannelMask) Len() int {
	n := 0
	for ch := Channel(1); ch <= MaxChannel; ch++ {
		if m.Has(ch) {
			n++
		}
	}
	return n
}

// Channels lists the channels set, ascending.
func (m ChannelMask) Channels() []Channel {
	var out []Channel
	for ch := Channel(1); ch <= MaxChannel; ch++ {
		if m.Has(ch) {
			out = append(out, ch)
		}
	}
	return out
}

// SignalType is the kind of signal detected.
type SignalType uint8

const (
	SignalWiFiB SignalType = iota + 1
	SignalWiFiG
	SignalWiFiN
	SignalGPS
	SignalBeiDou
)

var signalNames = map[SignalType]string{
	SignalWiFiB:  "b",
	SignalWiFiG:  "g",
	SignalWiFiN:  "n",
	SignalGPS:    "gps",
	SignalBeiDou: "beidou",
}

func (t SignalType) String() string {
	if s, ok := signalNames[t]; ok {
		return s
	}
	return fmt.Sprintf("signal(%d)", uint8(t))
}

// ParseSignalType parses names as produced by String.
func ParseSignalType(s string) (SignalType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range signalNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown signal type %q", s)
}

// Technology returns the scan technology that produces this signal type.
func (t SignalType) Technology() Technology {
	if t == SignalGPS || t == SignalBeiDou {
		return TechGNSS
	}
	return TechWiFi
}

// SignalTypeSet is a bitset of signal types.
type SignalTypeSet uint8

// SetOf builds a set from types.
func SetOf(types ...SignalType) SignalTypeSet {
	var s SignalTypeSet
	for _, t := range types {
		s |= 1 << t
	}
	return s
}

func (s SignalTypeSet) Has(t SignalType) bool {
	return s&(1<<t) != 0
}

func (s SignalTypeSet) Empty() bool {
	return s == 0
}

// Types lists members in declaration order.
func (s SignalTypeSet) Types() []SignalType {
	var out []SignalType
	for t := SignalWiFiB; t <= SignalBeiDou; t++ {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}
