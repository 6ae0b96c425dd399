package trace

import (
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/roach88/unx2/internal/machine"
)

// Event is the serializable form of one machine configuration.
// Tape uses the compact encoding, one character per cell.
type Event struct {
	Step  int    `json:"step"`
	State string `json:"state"`
	Head  int    `json:"head"`
	Tape  string `json:"tape"`
}

// FromConfiguration converts a machine configuration.
func FromConfiguration(c machine.Configuration) Event {
	return Event{
		Step:  c.Step,
		State: string(c.State),
		Head:  c.Head,
		Tape:  c.Tape.String(),
	}
}

// Configuration converts the event back into a machine configuration.
func (e Event) Configuration() (machine.Configuration, error) {
	tape, err := machine.ParseTape(e.Tape)
	if err != nil {
		return machine.Configuration{}, fmt.Errorf("event step %d: %w", e.Step, err)
	}
	return machine.Configuration{
		Step:  e.Step,
		State: machine.State(e.State),
		Head:  e.Head,
		Tape:  tape,
	}, nil
}

func (e Event) canonicalMap() map[string]any {
	return map[string]any{
		"step":  e.Step,
		"state": e.State,
		"head":  e.Head,
		"tape":  e.Tape,
	}
}

// MarshalCanonical returns the canonical JSON of the event.
func (e Event) MarshalCanonical() ([]byte, error) {
	return MarshalCanonical(e.canonicalMap())
}

// Recorder accumulates events and their digest while a run is consumed.
//
// The digest is computed incrementally over the canonical JSON array, so
// Digest after N adds equals Digest(events[:N]).
type Recorder struct {
	h      hash.Hash
	n      int
	keep   bool
	events []Event
}

// NewRecorder creates a Recorder. When keepEvents is false only the digest
// and count are tracked, which keeps memory flat for long runs.
func NewRecorder(keepEvents bool) *Recorder {
	h := newDomainHash(DomainTrace)
	h.Write([]byte{'['})
	return &Recorder{h: h, keep: keepEvents}
}

// Add records a configuration and returns its event.
func (r *Recorder) Add(c machine.Configuration) (Event, error) {
	ev := FromConfiguration(c)
	data, err := ev.MarshalCanonical()
	if err != nil {
		return ev, fmt.Errorf("record step %d: %w", c.Step, err)
	}
	if r.n > 0 {
		r.h.Write([]byte{','})
	}
	r.h.Write(data)
	r.n++
	if r.keep {
		r.events = append(r.events, ev)
	}
	return ev, nil
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int { return r.n }

// Events returns the recorded events, or nil if the Recorder does not keep them.
func (r *Recorder) Events() []Event {
	if !r.keep {
		return nil
	}
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Digest returns the digest of the events recorded so far. The running
// hash is cloned so the closing bracket never reaches it.
func (r *Recorder) Digest() string {
	state, err := r.h.(encoding.BinaryMarshaler).MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("trace: snapshot digest state: %v", err))
	}
	h := sha256.New()
	if err := h.(encoding.BinaryUnmarshaler).UnmarshalBinary(state); err != nil {
		panic(fmt.Sprintf("trace: restore digest state: %v", err))
	}
	h.Write([]byte{']'})
	return hex.EncodeToString(h.Sum(nil))
}
