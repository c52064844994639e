package userstory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storytime-app/storytime/pkg/story"
)

// ErrScenarioNotFound is returned when a choice references a scenario ID
// that is not part of the story.
var ErrScenarioNotFound = errors.New("scenario not found")

// Choice is a user-authored option. NextScenarioID is nil for a terminal
// choice.
type Choice struct {
	ID             uuid.UUID  `json:"id"`
	Text           string     `json:"text"`
	Consequence    string     `json:"consequence"`
	NextScenarioID *uuid.UUID `json:"next_scenario_id,omitempty"`
}

// Scenario is one user-authored scene.
type Scenario struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Text    string    `json:"story_text"`
	Choices []Choice  `json:"choices"`
}

// AddChoice appends a choice, assigning it an ID.
func (s *Scenario) AddChoice(text, consequence string, next *uuid.UUID) *Choice {
	s.Choices = append(s.Choices, Choice{
		ID:             uuid.New(),
		Text:           text,
		Consequence:    consequence,
		NextScenarioID: next,
	})
	return &s.Choices[len(s.Choices)-1]
}

// Story is a user-authored branching story. Unlike built-in graphs its
// structure stays mutable after creation: scenarios and choices can be
// appended in the editor at any time.
type Story struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Scenarios   []Scenario `json:"scenarios"`
	CreatedAt   time.Time  `json:"created_at"`
}

// New creates an empty story with a fresh ID.
func New(title, description string) *Story {
	return &Story{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// AddScenario appends a scenario, assigning it an ID.
func (st *Story) AddScenario(title, text string) *Scenario {
	st.Scenarios = append(st.Scenarios, Scenario{
		ID:    uuid.New(),
		Title: title,
		Text:  text,
	})
	return &st.Scenarios[len(st.Scenarios)-1]
}

// Scenario returns the scenario with the given ID.
func (st *Story) Scenario(id uuid.UUID) (*Scenario, bool) {
	for i := range st.Scenarios {
		if st.Scenarios[i].ID == id {
			return &st.Scenarios[i], true
		}
	}
	return nil, false
}

// Compile freezes the story into an immutable graph so it plays through
// the same engine as built-in stories. UUID references become stable
// scenario keys (s1, s2, ... in authored order, the first scenario being
// the start), and the result is validated like any other graph.
func (st *Story) Compile() (*story.Graph, error) {
	if len(st.Scenarios) == 0 {
		return nil, fmt.Errorf("story %q has no scenarios", st.Title)
	}

	keys := make(map[uuid.UUID]string, len(st.Scenarios))
	for i, s := range st.Scenarios {
		keys[s.ID] = fmt.Sprintf("s%d", i+1)
	}

	g := &story.Graph{
		Name:        st.Title,
		Description: st.Description,
		Start:       "s1",
		Scenarios:   make(map[string]story.Scenario, len(st.Scenarios)),
	}
	for _, s := range st.Scenarios {
		sc := story.Scenario{Title: s.Title, Text: s.Text}
		for _, c := range s.Choices {
			next := ""
			if c.NextScenarioID != nil {
				key, ok := keys[*c.NextScenarioID]
				if !ok {
					return nil, fmt.Errorf("choice %q in scenario %q: %w: %s",
						c.Text, s.Title, ErrScenarioNotFound, c.NextScenarioID)
				}
				next = key
			}
			sc.Choices = append(sc.Choices, story.Choice{
				Text:        c.Text,
				Consequence: c.Consequence,
				Next:        next,
			})
		}
		g.Scenarios[keys[s.ID]] = sc
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
