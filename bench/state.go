package bench

import "fmt"

// State is a step of the benchmark pipeline.
type State int

const (
	StateIdle State = iota
	StateGeneratingPayload
	StateWritingToDevice
	StateReadingFromDevice
	StateDone
	StateAborted
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateGeneratingPayload: "generating-payload",
	StateWritingToDevice:   "writing-to-device",
	StateReadingFromDevice: "reading-from-device",
	StateDone:              "done",
	StateAborted:           "aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state

			return nil
		}
	}

	return fmt.Errorf("unknown state %q", text)
}

// Phase names a copy step of the pipeline.
type Phase string

const (
	PhaseGenerate Phase = "generate"
	PhaseWrite    Phase = "write"
	PhaseRead     Phase = "read"
)

// PhaseError wraps the error that aborted a run with the phase it
// happened in.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
