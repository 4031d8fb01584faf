// Package config loads and normalizes the TOML node/controller
// configuration: identity and per-port direction/protocol/address/merge
// mode/output style/RDM enable/failsafe mode (§6.5).
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gopatchy/dmxnode/iface"
	"github.com/gopatchy/dmxnode/merge"
	"github.com/gopatchy/dmxnode/portaddr"
)

// MaxPorts bounds the port table, matching the artnet/sacn port-group
// convention (§3.3) without importing either package.
const MaxPorts = 4

// Config is the raw TOML document shape.
type Config struct {
	Identity Identity     `toml:"identity"`
	Ports    []PortConfig `toml:"port"`
}

// Identity names this node/controller on the wire (§3.6, §6.2).
type Identity struct {
	ShortName string `toml:"short_name"`
	LongName  string `toml:"long_name"`
	Oem       int64  `toml:"oem"`
}

// PortConfig is one [[port]] table entry before normalization.
type PortConfig struct {
	Index       int    `toml:"index"`
	Direction   string `toml:"direction"`    // "input" | "output" | "disabled"
	Protocol    string `toml:"protocol"`     // "artnet" | "sacn"
	Address     string `toml:"address"`      // "net.sub.universe" or bare universe number
	MergeMode   string `toml:"merge_mode"`   // "htp" | "ltp"
	OutputStyle string `toml:"output_style"` // "delta" | "constant"
	RdmEnabled  bool   `toml:"rdm_enabled"`
	Failsafe    string `toml:"failsafe"` // "hold_last" | "zero" | "full" | "playback_scene" | "record_scene"
}

// NormalizedPort is a validated PortConfig ready to feed
// artnet.Node.ConfigurePort / sacn.Bridge.ConfigurePort.
type NormalizedPort struct {
	Index       int
	Direction   iface.PortDir
	Protocol    iface.Protocol
	Address     portaddr.Address
	MergeMode   merge.Mode
	OutputStyle iface.OutputStyle
	RdmEnabled  bool
	Failsafe    iface.FailsafeMode
}

// Load reads and validates path, applying the same normalize-then-validate
// defaults pattern the teacher's config loader used for channel mappings.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Identity.ShortName == "" {
		cfg.Identity.ShortName = "dmxnode"
	}
	if cfg.Identity.LongName == "" {
		cfg.Identity.LongName = "dmxnode Art-Net/sACN node"
	}

	seen := make(map[int]bool)
	for i := range cfg.Ports {
		p := &cfg.Ports[i]
		if p.Direction == "" {
			p.Direction = "output"
		}
		if p.Protocol == "" {
			p.Protocol = "artnet"
		}
		if p.MergeMode == "" {
			p.MergeMode = "htp"
		}
		if p.OutputStyle == "" {
			p.OutputStyle = "delta"
		}
		if p.Failsafe == "" {
			p.Failsafe = "hold_last"
		}

		if p.Index < 0 || p.Index >= MaxPorts {
			return nil, fmt.Errorf("port %d: index must be 0-%d", i, MaxPorts-1)
		}
		if seen[p.Index] {
			return nil, fmt.Errorf("port %d: duplicate index %d", i, p.Index)
		}
		seen[p.Index] = true

		if _, err := parseDirection(p.Direction); err != nil {
			return nil, fmt.Errorf("port %d: %w", i, err)
		}
		if _, err := parseProtocol(p.Protocol); err != nil {
			return nil, fmt.Errorf("port %d: %w", i, err)
		}
		if _, err := portaddr.ParseAddress(p.Address); err != nil {
			return nil, fmt.Errorf("port %d: %w", i, err)
		}
		if _, err := parseMergeMode(p.MergeMode); err != nil {
			return nil, fmt.Errorf("port %d: %w", i, err)
		}
		if _, err := parseOutputStyle(p.OutputStyle); err != nil {
			return nil, fmt.Errorf("port %d: %w", i, err)
		}
		if _, err := parseFailsafe(p.Failsafe); err != nil {
			return nil, fmt.Errorf("port %d: %w", i, err)
		}
	}

	return &cfg, nil
}

func parseDirection(s string) (iface.PortDir, error) {
	switch strings.ToLower(s) {
	case "input":
		return iface.PortInput, nil
	case "output":
		return iface.PortOutput, nil
	case "disabled":
		return iface.PortDisabled, nil
	default:
		return 0, fmt.Errorf("invalid direction %q", s)
	}
}

func parseProtocol(s string) (iface.Protocol, error) {
	switch strings.ToLower(s) {
	case "artnet":
		return iface.ProtocolArtNet, nil
	case "sacn":
		return iface.ProtocolSacn, nil
	default:
		return 0, fmt.Errorf("invalid protocol %q", s)
	}
}

func parseMergeMode(s string) (merge.Mode, error) {
	switch strings.ToLower(s) {
	case "htp":
		return merge.HTP, nil
	case "ltp":
		return merge.LTP, nil
	default:
		return 0, fmt.Errorf("invalid merge_mode %q", s)
	}
}

func parseOutputStyle(s string) (iface.OutputStyle, error) {
	switch strings.ToLower(s) {
	case "delta":
		return iface.OutputStyleDelta, nil
	case "constant":
		return iface.OutputStyleConstant, nil
	default:
		return 0, fmt.Errorf("invalid output_style %q", s)
	}
}

func parseFailsafe(s string) (iface.FailsafeMode, error) {
	switch strings.ToLower(s) {
	case "hold_last":
		return iface.FailsafeHoldLast, nil
	case "zero":
		return iface.FailsafeZero, nil
	case "full":
		return iface.FailsafeFull, nil
	case "playback_scene":
		return iface.FailsafePlaybackScene, nil
	case "record_scene":
		return iface.FailsafeRecordScene, nil
	default:
		return 0, fmt.Errorf("invalid failsafe %q", s)
	}
}

// Normalize converts validated PortConfig entries to NormalizedPort. Load
// must have returned without error first; Normalize does not re-validate.
func (c *Config) Normalize() []NormalizedPort {
	out := make([]NormalizedPort, len(c.Ports))
	for i, p := range c.Ports {
		dir, _ := parseDirection(p.Direction)
		proto, _ := parseProtocol(p.Protocol)
		addr, _ := portaddr.ParseAddress(p.Address)
		mode, _ := parseMergeMode(p.MergeMode)
		style, _ := parseOutputStyle(p.OutputStyle)
		failsafe, _ := parseFailsafe(p.Failsafe)

		out[i] = NormalizedPort{
			Index:       p.Index,
			Direction:   dir,
			Protocol:    proto,
			Address:     addr,
			MergeMode:   mode,
			OutputStyle: style,
			RdmEnabled:  p.RdmEnabled,
			Failsafe:    failsafe,
		}
	}
	return out
}
