package story

// Choice is one selectable option on a scenario. Consequence is shown
// transiently after selection, before the next scenario's body text.
// For graph stories Next names the scenario key that the choice leads to;
// an empty Next marks a terminal choice. For generated stories Next is
// unused and Prompt carries the follow-up generation prompt instead.
type Choice struct {
	Text        string `json:"text"`
	Consequence string `json:"consequence,omitempty"`
	Next        string `json:"next_scenario,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
}

// Terminal reports whether selecting this choice ends the story.
func (c Choice) Terminal() bool {
	return c.Next == "" && c.Prompt == ""
}

// Scenario is one node of narrative text plus its outgoing choices.
// Choice order is significant: it is the display and selection order.
type Scenario struct {
	Title   string   `json:"title"`
	Text    string   `json:"story_text"`
	Choices []Choice `json:"choices,omitempty"`
}

// Graph is an immutable collection of scenarios for one built-in story,
// keyed by stable scenario IDs and rooted at Start. Graphs may be cyclic;
// revisiting earlier scenarios is permitted.
type Graph struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Start       string              `json:"start"`
	Scenarios   map[string]Scenario `json:"scenarios"`
}

// Get looks up a scenario by key.
func (g *Graph) Get(key string) (Scenario, bool) {
	s, ok := g.Scenarios[key]
	return s, ok
}

// Keys returns all scenario keys in unspecified order.
func (g *Graph) Keys() []string {
	keys := make([]string, 0, len(g.Scenarios))
	for k := range g.Scenarios {
		keys = append(keys, k)
	}
	return keys
}
