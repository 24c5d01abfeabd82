package models

import (
	"fmt"
	"strings"
)

// Phase is the stage of a test run
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePing
	PhaseDownload
	PhaseUpload
	PhaseComplete
)

var phaseNames = [...]string{"idle", "ping", "download", "upload", "complete"}

func (p Phase) String() string {
	if p < PhaseIdle || p > PhaseComplete {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Active reports whether the phase performs measurements
func (p Phase) Active() bool {
	return p == PhasePing || p == PhaseDownload || p == PhaseUpload
}

// MarshalText encodes the phase as its name
func (p Phase) MarshalText() ([]byte, error) {
	if p < PhaseIdle || p > PhaseComplete {
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name
func (p *Phase) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range phaseNames {
		if n == name {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// TestProgress is a transient status update emitted during a run
type TestProgress struct {
	Phase            Phase   `json:"phase"`
	Progress         float64 `json:"progress"` // 0-100 within the phase
	CurrentSpeedMbps float64 `json:"current_speed_mbps"`
}
