package engine

import (
	"errors"
	"fmt"

	"github.com/storytime-app/storytime/pkg/story"
)

var (
	// ErrUnknownScenario is returned when a load targets a key that is
	// not in the bound graph. Graphs are validated before a session is
	// created, so this is unreachable during normal play.
	ErrUnknownScenario = errors.New("unknown scenario")

	// ErrChoicePending is returned when a choice is selected while an
	// earlier selection is still showing its consequence.
	ErrChoicePending = errors.New("a choice is already pending commit")

	// ErrStoryEnded is returned for selections after a terminal commit.
	ErrStoryEnded = errors.New("the story has ended")

	// ErrNoChoice is returned for an out-of-range choice index.
	ErrNoChoice = errors.New("no such choice")
)

// HistoryEntry is one line of the reading pane: either a scenario's body
// text or the consequence text of a chosen option.
type HistoryEntry struct {
	Text          string `json:"text"`
	IsConsequence bool   `json:"is_consequence"`
}

// CommitToken identifies one pending choice selection. Commit applies a
// transition only for the token of the still-pending selection, so a
// delayed commit that fires after GoBack or a second commit of the same
// selection is a no-op.
type CommitToken uint64

// navFrame records where a forward step departed from, and how long the
// history log was before the step appended its entries. GoBack restores
// both, making it an exact inverse of select+commit.
type navFrame struct {
	Key        string `json:"key"`
	HistoryLen int    `json:"history_len"`
}

// Session drives a reader's traversal of a story graph one step at a
// time. It is single-reader state: no locking, no concurrent use.
type Session struct {
	graph *story.Graph

	current            string
	storyText          string
	choices            []story.Choice
	showingConsequence bool
	consequenceText    string

	pending  *story.Choice
	tokenSeq uint64
	ended    bool

	stack   []navFrame
	history []HistoryEntry
}

// NewSession validates the graph and opens a session at its start
// scenario.
func NewSession(g *story.Graph) (*Session, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	s := &Session{graph: g}
	if err := s.LoadScenario(g.Start); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadScenario makes the given scenario current, resets any pending
// consequence, and installs the scenario's choices in declared order.
func (s *Session) LoadScenario(key string) error {
	sc, ok := s.graph.Get(key)
	if !ok {
		return fmt.Errorf("%w: %q in graph %q", ErrUnknownScenario, key, s.graph.Name)
	}
	s.current = key
	s.storyText = sc.Text
	s.choices = sc.Choices
	s.showingConsequence = false
	s.consequenceText = ""
	s.pending = nil
	s.ended = false
	return nil
}

// SelectChoice reveals the consequence of the i-th current choice and
// records the departing scenario's body text plus the consequence in the
// history log. The transition itself happens later, when the host commits
// the returned token; the reading surface owns the pacing delay.
func (s *Session) SelectChoice(i int) (CommitToken, error) {
	if s.ended {
		return 0, ErrStoryEnded
	}
	if s.showingConsequence {
		return 0, ErrChoicePending
	}
	if i < 0 || i >= len(s.choices) {
		return 0, fmt.Errorf("%w: index %d of %d", ErrNoChoice, i, len(s.choices))
	}

	choice := s.choices[i]
	s.stack = append(s.stack, navFrame{Key: s.current, HistoryLen: len(s.history)})
	s.history = append(s.history,
		HistoryEntry{Text: s.storyText},
		HistoryEntry{Text: choice.Consequence, IsConsequence: true},
	)
	s.showingConsequence = true
	s.consequenceText = choice.Consequence
	s.pending = &choice
	s.tokenSeq++
	return CommitToken(s.tokenSeq), nil
}

// Commit applies the transition of the selection identified by token:
// loading the next scenario, or ending the story for a terminal choice.
// A stale token (superseded selection, GoBack, or an already-applied
// commit) is ignored.
func (s *Session) Commit(token CommitToken) error {
	if s.pending == nil || token != CommitToken(s.tokenSeq) {
		return nil
	}
	choice := *s.pending
	s.pending = nil
	if choice.Next == "" {
		// Terminal: the consequence stays on screen with no further
		// choices.
		s.choices = nil
		s.ended = true
		return nil
	}
	return s.LoadScenario(choice.Next)
}

// GoBack undoes the most recent forward step: it truncates the history
// log to its pre-step length and reloads the scenario the step departed
// from. It reports false when there is no previous scenario, in which
// case the caller is expected to exit the story view.
func (s *Session) GoBack() bool {
	if len(s.stack) == 0 {
		return false
	}
	frame := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	if frame.HistoryLen <= len(s.history) {
		s.history = s.history[:frame.HistoryLen]
	}
	// The popped key came off the stack it was pushed onto, so it is
	// always a valid graph key.
	_ = s.LoadScenario(frame.Key)
	return true
}

// Current returns the current scenario key.
func (s *Session) Current() string { return s.current }

// StoryText returns the current scenario's body text.
func (s *Session) StoryText() string { return s.storyText }

// Choices returns the current choice list in declared order. It is nil
// once the story has ended.
func (s *Session) Choices() []story.Choice { return s.choices }

// ShowingConsequence reports whether a selected choice's consequence is
// on screen, awaiting commit.
func (s *Session) ShowingConsequence() bool { return s.showingConsequence }

// ConsequenceText returns the pending consequence text.
func (s *Session) ConsequenceText() string { return s.consequenceText }

// Ended reports whether a terminal choice has been committed.
func (s *Session) Ended() bool { return s.ended }

// History returns the ordered log of body and consequence text rendered
// so far.
func (s *Session) History() []HistoryEntry { return s.history }

// Depth returns the number of forward steps that can be undone.
func (s *Session) Depth() int { return len(s.stack) }

// Graph returns the bound story graph.
func (s *Session) Graph() *story.Graph { return s.graph }
