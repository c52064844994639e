package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/storytime-app/storytime/pkg/story"
)

// Snapshot is a serializable copy of a session's position, taken when the
// reader explicitly saves mid-story. Sessions are otherwise discarded
// when the story view closes.
type Snapshot struct {
	ID                 uuid.UUID      `json:"id"`
	Story              string         `json:"story"` // graph file name
	Current            string         `json:"current"`
	ShowingConsequence bool           `json:"showing_consequence,omitempty"`
	ConsequenceText    string         `json:"consequence_text,omitempty"`
	Pending            *story.Choice  `json:"pending,omitempty"`
	TokenSeq           uint64         `json:"token_seq,omitempty"`
	Ended              bool           `json:"ended,omitempty"`
	Stack              []navFrame     `json:"stack,omitempty"`
	History            []HistoryEntry `json:"history,omitempty"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Snapshot captures the session's current state under the given snapshot
// ID and story file name.
func (s *Session) Snapshot(id uuid.UUID, storyFile string) *Snapshot {
	snap := &Snapshot{
		ID:                 id,
		Story:              storyFile,
		Current:            s.current,
		ShowingConsequence: s.showingConsequence,
		ConsequenceText:    s.consequenceText,
		TokenSeq:           s.tokenSeq,
		Ended:              s.ended,
		Stack:              append([]navFrame(nil), s.stack...),
		History:            append([]HistoryEntry(nil), s.history...),
		UpdatedAt:          time.Now(),
	}
	if s.pending != nil {
		c := *s.pending
		snap.Pending = &c
	}
	return snap
}

// Restore rebuilds a session over g from a snapshot previously taken
// against the same graph.
func Restore(g *story.Graph, snap *Snapshot) (*Session, error) {
	s, err := NewSession(g)
	if err != nil {
		return nil, err
	}
	if err := s.LoadScenario(snap.Current); err != nil {
		return nil, err
	}
	s.showingConsequence = snap.ShowingConsequence
	s.consequenceText = snap.ConsequenceText
	s.ended = snap.Ended
	if s.ended {
		s.choices = nil
	}
	s.stack = append([]navFrame(nil), snap.Stack...)
	s.history = append([]HistoryEntry(nil), snap.History...)
	// The token sequence is carried across restores so a token handed out
	// before the snapshot stays distinguishable from later selections.
	s.tokenSeq = snap.TokenSeq
	if snap.Pending != nil {
		c := *snap.Pending
		s.pending = &c
	}
	return s, nil
}

// PendingToken returns the commit token of the restored pending choice,
// or zero when nothing is pending. Hosts that restore a snapshot
// mid-consequence use it to re-arm the delayed commit.
func (s *Session) PendingToken() CommitToken {
	if s.pending == nil {
		return 0
	}
	return CommitToken(s.tokenSeq)
}
