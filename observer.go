package webchat

import "fmt"

// Phase is the lifecycle position of one managed widget instance.
//
// Phases only move forward. A teardown request jumps straight to
// PhaseDestroyed from wherever the instance was; PhaseDestroyed is terminal.
type Phase int

const (
	PhasePending Phase = iota
	PhaseScriptLoading
	PhaseCreating
	PhaseCreated
	PhaseDestroyed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseScriptLoading:
		return "script_loading"
	case PhaseCreating:
		return "creating"
	case PhaseCreated:
		return "created"
	case PhaseDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Observer receives lifecycle notifications. Calls may arrive from any
// goroutine; implementations must be safe for concurrent use.
type Observer interface {
	// ScriptRequested is called for every EnsureScript call. initiated is
	// true only for the call that started the load.
	ScriptRequested(url string, initiated bool)

	// ScriptSettled is called once when the load finishes.
	ScriptSettled(url string, err error)

	// PhaseChanged is called on every phase transition.
	PhaseChanged(cfg *Config, phase Phase)

	// CreateFailed is called when the creation sequence fails.
	CreateFailed(cfg *Config, err error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) ScriptRequested(string, bool) {}
func (NopObserver) ScriptSettled(string, error) {}
func (NopObserver) PhaseChanged(*Config, Phase) {}
func (NopObserver) CreateFailed(*Config, error) {}
