// Package incident holds the in-memory collection of saved incidents.
package incident

import (
	"sync"
	"time"

	"github.com/gdumair1-a11y/EchoSave/internal/analysis"
	"github.com/gdumair1-a11y/EchoSave/internal/buffer"
	"github.com/google/uuid"
)

// Incident is a user-saved audio clip plus optional analysis. Immutable
// except for the one-time attachment of the analysis result.
type Incident struct {
	ID              string
	CreatedAt       time.Time
	DurationSeconds int
	Audio           []byte
	Analysis        *analysis.Result
}

// Store is the ordered in-memory incident collection, most recent first.
// The store exclusively owns its entries once saved.
type Store struct {
	mu        sync.Mutex
	incidents []*Incident
}

// NewStore creates an empty incident store.
func NewStore() *Store {
	return &Store{}
}

// Save extracts the trailing window from the ring and stores a new
// incident at the head of the list. Returns nil, without error, if no
// fragments qualify: an empty or fully-stale buffer is a normal outcome,
// not a failure.
func (s *Store) Save(ring *buffer.Ring, now time.Time, window time.Duration) *Incident {
	frags := ring.Extract(now, window)
	if len(frags) == 0 {
		return nil
	}

	var size int
	for _, f := range frags {
		size += len(f.Payload)
	}

	combined := make([]byte, 0, size)
	for _, f := range frags {
		combined = append(combined, f.Payload...)
	}

	inc := &Incident{
		ID:        uuid.NewString(),
		CreatedAt: now,
		// Duration is reported as a count of chunk-cadence fragments, not
		// the elapsed span between first and last. Under irregular cadence
		// the two diverge; see DESIGN.md.
		DurationSeconds: len(frags),
		Audio:           combined,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.incidents = append([]*Incident{inc}, s.incidents...)

	return inc
}

// AttachAnalysis sets the analysis result for the given incident. Repeated
// calls overwrite. A missing id is a silent no-op: the incident may have
// been deleted while analysis was in flight, which is a legitimate race.
func (s *Store) AttachAnalysis(id string, result *analysis.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inc := range s.incidents {
		if inc.ID == id {
			inc.Analysis = result
			return
		}
	}
}

// Get returns the incident with the given id, if present.
func (s *Store) Get(id string) (*Incident, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inc := range s.incidents {
		if inc.ID == id {
			return inc, true
		}
	}

	return nil, false
}

// Delete removes the incident with the given id. Idempotent.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, inc := range s.incidents {
		if inc.ID == id {
			s.incidents = append(s.incidents[:i], s.incidents[i+1:]...)
			return
		}
	}
}

// List returns a snapshot of all incidents, most recent first.
func (s *Store) List() []*Incident {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Incident, len(s.incidents))
	copy(out, s.incidents)

	return out
}

// Len returns the number of saved incidents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.incidents)
}
