package device

import (
	"sort"

	"go.uber.org/zap"

	"speakerremote/internal/config"
)

// Group broadcasts power commands to a fixed set of speakers.
// Membership is built once from configuration and never changes.
type Group struct {
	speakers []*Speaker
	logger   *zap.Logger
}

// NewGroup creates a group from explicit speaker handles
func NewGroup(speakers []*Speaker, logger *zap.Logger) *Group {
	return &Group{
		speakers: speakers,
		logger:   logger,
	}
}

// GroupFromConfig builds all speaker handles from the configuration.
// Speakers are ordered by name so behavior is deterministic.
func GroupFromConfig(cfgs map[string]config.SpeakerConfig, dial DialFunc, logger *zap.Logger) (*Group, error) {
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	speakers := make([]*Speaker, 0, len(names))
	for _, name := range names {
		speaker, err := FromConfig(name, cfgs[name], dial, logger)
		if err != nil {
			return nil, err
		}
		speakers = append(speakers, speaker)
	}

	return NewGroup(speakers, logger), nil
}

// Speakers returns the group members
func (g *Group) Speakers() []*Speaker {
	return g.speakers
}

// SwitchOn powers every speaker on
func (g *Group) SwitchOn() {
	g.SetPowerState(true)
}

// SwitchOff powers every speaker off
func (g *Group) SwitchOff() {
	g.SetPowerState(false)
}

// SetPowerState broadcasts the desired power state to every speaker
// concurrently. Each command runs in its own goroutine and is not
// awaited: one slow or unreachable speaker must never delay the
// others, and outcomes are observed only through the speaker logs.
// Do not add a join here; it would reintroduce head-of-line blocking.
func (g *Group) SetPowerState(on bool) {
	g.logger.Debug("Broadcasting power state",
		zap.String("power", PowerStateText(on)),
		zap.Int("speakers", len(g.speakers)))

	for _, speaker := range g.speakers {
		go speaker.SetState(on)
	}
}
