// Package config loads the daemon's TOML configuration file.
// The file is read once at startup and never mutated afterwards;
// any validation failure is fatal at the bootstrap layer.
package config

import (
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the daemon configuration file
type Config struct {
	Receiver ReceiverConfig           `toml:"receiver"`
	Speakers map[string]SpeakerConfig `toml:"speakers"`
}

// ReceiverConfig identifies the media receiver to link speakers to
type ReceiverConfig struct {
	Name string `toml:"name"`
}

// SpeakerConfig describes one smart-plug-controlled speaker
type SpeakerConfig struct {
	Address string `toml:"address"` // host:port
	MAC     string `toml:"mac"`     // hex, with or without separators
	DevType string `toml:"devtype"` // decimal or 0x-prefixed hex
}

// Load reads and validates the configuration file at path
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Receiver.Name == "" {
		return fmt.Errorf("receiver name must be set")
	}

	if len(c.Speakers) == 0 {
		return fmt.Errorf("at least one speaker must be configured")
	}

	for name, speaker := range c.Speakers {
		if _, _, err := speaker.HostPort(); err != nil {
			return fmt.Errorf("speaker %s: %w", name, err)
		}
		if _, err := speaker.HardwareAddr(); err != nil {
			return fmt.Errorf("speaker %s: %w", name, err)
		}
		if _, err := speaker.DeviceType(); err != nil {
			return fmt.Errorf("speaker %s: %w", name, err)
		}
	}

	return nil
}

// HostPort splits the speaker address into host and port
func (s SpeakerConfig) HostPort() (string, int, error) {
	host, portStr, err := net.SplitHostPort(s.Address)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %w", s.Address, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q in address", portStr)
	}

	return host, port, nil
}

// HardwareAddr parses the speaker MAC. Both standard colon notation and
// the bare hex form used by the plug vendor's tooling are accepted.
func (s SpeakerConfig) HardwareAddr() (net.HardwareAddr, error) {
	if strings.ContainsAny(s.MAC, ":-.") {
		mac, err := net.ParseMAC(s.MAC)
		if err != nil {
			return nil, fmt.Errorf("invalid mac %q: %w", s.MAC, err)
		}
		return mac, nil
	}

	raw, err := hex.DecodeString(s.MAC)
	if err != nil {
		return nil, fmt.Errorf("invalid mac %q: %w", s.MAC, err)
	}
	if len(raw) != 6 {
		return nil, fmt.Errorf("invalid mac %q: expected 6 bytes, got %d", s.MAC, len(raw))
	}

	return net.HardwareAddr(raw), nil
}

// DeviceType parses the device type discriminator as a uint16.
// Both decimal and 0x-prefixed hex are accepted.
func (s SpeakerConfig) DeviceType() (uint16, error) {
	devtype, err := strconv.ParseUint(s.DevType, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid devtype %q: %w", s.DevType, err)
	}

	return uint16(devtype), nil
}
