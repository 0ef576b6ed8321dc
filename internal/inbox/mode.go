package inbox

import "fmt"

// Mode is the façade's backend selection state.
type Mode int

const (
	// ModeRemotePreferred tries the remote service first on every call.
	ModeRemotePreferred Mode = iota
	// ModeLocalOnly serves every call from the local cache. It is sticky:
	// only ResetBackendConnection leaves it.
	ModeLocalOnly
)

func (m Mode) String() string {
	switch m {
	case ModeRemotePreferred:
		return "remote_preferred"
	case ModeLocalOnly:
		return "local_only"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ModeChange is published to OnModeChange subscribers.
type ModeChange struct {
	From   Mode
	To     Mode
	Reason string
}

// Source names where a result came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Status is a diagnostic snapshot of the façade.
type Status struct {
	Mode         Mode `json:"mode"`
	HasLocalData bool `json:"hasLocalData"`
	LocalCount   int  `json:"localCount"`
}
