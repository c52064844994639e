package engine

import (
	"context"
	"errors"
	"time"

	"github.com/storytime-app/storytime/pkg/story"
	"github.com/storytime-app/storytime/pkg/transcript"
)

// ErrLoading is returned when a selection arrives while a generation
// request is still outstanding.
var ErrLoading = errors.New("a scenario is still being generated")

// Generator produces one new scenario from a free-text prompt. Each
// returned scenario carries 2-3 choices whose Prompt fields seed the next
// generation step.
type Generator interface {
	GenerateScenario(ctx context.Context, prompt string) (*story.Scenario, error)
}

// fetched pairs a generated scenario with the moment it arrived and the
// label of the choice that eventually left it.
type fetched struct {
	scenario   story.Scenario
	at         time.Time
	choiceMade string
}

// AISession drives a generated story. It follows the same state machine
// as Session except that "next scenario" is never a key lookup: each step
// asks the Generator for a fresh scenario using the selected choice's
// follow-up prompt. Back-navigation walks the linear list of previously
// fetched scenarios, since there is no graph to rejoin.
type AISession struct {
	gen Generator

	current  *fetched
	previous []fetched
	loading  bool
	history  []HistoryEntry
}

// NewAISession creates a session that is not yet started.
func NewAISession(gen Generator) *AISession {
	return &AISession{gen: gen}
}

// Start fetches the opening scenario from the initial prompt. On error
// the session stays unstarted and may be started again.
func (s *AISession) Start(ctx context.Context, prompt string) error {
	if s.loading {
		return ErrLoading
	}
	s.loading = true
	defer func() { s.loading = false }()

	sc, err := s.gen.GenerateScenario(ctx, prompt)
	if err != nil {
		return err
	}
	s.current = &fetched{scenario: *sc, at: time.Now()}
	s.history = append(s.history, HistoryEntry{Text: sc.Text})
	return nil
}

// SelectChoice requests the continuation for the i-th choice of the
// current scenario and makes the response current. While the request is
// outstanding the session is in a loading sub-state that suppresses
// further selection. On a request or format error the current scenario
// is left unchanged; the caller surfaces the error and may retry.
func (s *AISession) SelectChoice(ctx context.Context, i int) error {
	if s.loading {
		return ErrLoading
	}
	if s.current == nil {
		return ErrUnknownScenario
	}
	choices := s.current.scenario.Choices
	if i < 0 || i >= len(choices) {
		return ErrNoChoice
	}

	s.loading = true
	defer func() { s.loading = false }()

	choice := choices[i]
	next, err := s.gen.GenerateScenario(ctx, choice.Prompt)
	if err != nil {
		return err
	}

	departed := *s.current
	departed.choiceMade = choice.Text
	s.previous = append(s.previous, departed)
	s.current = &fetched{scenario: *next, at: time.Now()}
	s.history = append(s.history,
		HistoryEntry{Text: choice.Text, IsConsequence: true},
		HistoryEntry{Text: next.Text},
	)
	return nil
}

// GoBack returns to the previously fetched scenario, dropping the current
// one. It reports false when the session is at its first scenario.
func (s *AISession) GoBack() bool {
	if s.loading || len(s.previous) == 0 {
		return false
	}
	last := s.previous[len(s.previous)-1]
	s.previous = s.previous[:len(s.previous)-1]
	last.choiceMade = ""
	s.current = &last
	if len(s.history) >= 2 {
		s.history = s.history[:len(s.history)-2]
	}
	return true
}

// Current returns the current scenario, or nil before Start succeeds.
func (s *AISession) Current() *story.Scenario {
	if s.current == nil {
		return nil
	}
	sc := s.current.scenario
	return &sc
}

// Loading reports whether a generation request is outstanding.
func (s *AISession) Loading() bool { return s.loading }

// History returns the ordered log of scenario text and chosen labels.
func (s *AISession) History() []HistoryEntry { return s.history }

// Depth returns the number of scenarios that can be backed out of.
func (s *AISession) Depth() int { return len(s.previous) }

// Transcript flattens the playthrough into a saved transcript: one
// segment per fetched scenario, with the choice that left it, ending with
// the current scenario.
func (s *AISession) Transcript(title string, tags []string, rating int) *transcript.Transcript {
	t := transcript.New(title)
	t.Tags = tags
	t.Rating = rating
	for _, f := range s.previous {
		t.Segments = append(t.Segments, transcript.Segment{
			Text:       f.scenario.Text,
			Timestamp:  f.at,
			ChoiceMade: f.choiceMade,
		})
	}
	if s.current != nil {
		t.Segments = append(t.Segments, transcript.Segment{
			Text:      s.current.scenario.Text,
			Timestamp: s.current.at,
		})
	}
	return t
}
