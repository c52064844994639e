package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/storytime-app/storytime/pkg/engine"
	"github.com/storytime-app/storytime/pkg/transcript"
)

// consequenceDelay is how long a choice's consequence stays on screen
// before the transition commits. Going back during the delay cancels it.
const consequenceDelay = 2 * time.Second

// generateTimeout bounds a single generation request.
const generateTimeout = 90 * time.Second

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	stories        []storyItem
	gen            engine.Generator
	saveTranscript func(*transcript.Transcript) (string, error)

	session  *engine.Session
	viewport viewport.Model
	ready    bool
	width    int
	height   int
	status   string

	// Generated-story state
	ai        *engine.AISession
	aiPrompt  string
	aiLoading bool

	// Story selection state
	showStoryModal bool
	selectedStory  int
	storyName      string

	// Prompt entry state for generated stories
	showPromptModal bool
	promptInput     textarea.Model

	// Quit confirmation state
	showQuitModal bool
}

type commitMsg struct {
	token engine.CommitToken
}

// scenarioMsg delivers the outcome of a generation request back to the
// update loop.
type scenarioMsg struct {
	err error
}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(3)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	consequenceStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")). // yellow
				Italic(true)

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	endingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

func NewConsoleUI(stories []storyItem, gen engine.Generator, saveTranscript func(*transcript.Transcript) (string, error)) ConsoleUI {
	vp := viewport.New(60, 20)
	vp.MouseWheelEnabled = true

	ta := textarea.New()
	ta.Placeholder = "Describe the story you want to read..."
	ta.Prompt = ":: "
	ta.CharLimit = 500
	ta.SetWidth(54)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	return ConsoleUI{
		stories:        stories,
		gen:            gen,
		saveTranscript: saveTranscript,
		viewport:       vp,
		promptInput:    ta,
		showStoryModal: true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return nil
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The delayed commit lands even while a modal is on top, so
	// dismissing the quit prompt does not strand the consequence.
	// Stale tokens (the reader already went back) commit nothing.
	if commit, ok := msg.(commitMsg); ok {
		if m.session != nil {
			if err := m.session.Commit(commit.token); err == nil {
				m.writeStoryContent()
			}
		}
		return m, nil
	}
	if sc, ok := msg.(scenarioMsg); ok {
		return m.handleScenario(sc)
	}

	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showPromptModal {
		return m.updatePromptModal(msg)
	}
	if m.showStoryModal {
		return m.updateStoryModal(msg)
	}

	var vpCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.width - 8
		m.viewport.Height = m.height - 5
		m.ready = true
		if m.ai != nil {
			if !m.aiLoading {
				m.writeAIContent()
			}
		} else {
			m.writeStoryContent()
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		}

		switch msg.String() {
		case "q":
			m.showQuitModal = true
			return m, nil

		case "b":
			m.status = ""
			if m.ai != nil {
				if m.aiLoading {
					return m, nil
				}
				if !m.ai.GoBack() {
					// At the opening scene: leave the story.
					m.ai = nil
					m.showStoryModal = true
					return m, nil
				}
				m.writeAIContent()
				return m, nil
			}
			if !m.session.GoBack() {
				m.session = nil
				m.showStoryModal = true
				return m, nil
			}
			m.writeStoryContent()
			return m, nil

		case "c":
			if m.ai != nil {
				t := m.ai.Transcript(m.aiPrompt, nil, 0)
				if path, err := m.saveTranscript(t); err != nil {
					m.status = "Save failed: " + err.Error()
				} else {
					m.status = "Transcript saved to " + path
				}
				m.writeAIContent()
				return m, nil
			}
			if err := clipboard.WriteAll(m.historyText()); err != nil {
				m.status = "Copy failed: " + err.Error()
			} else {
				m.status = "Story so far copied to clipboard"
			}
			m.writeStoryContent()
			return m, nil

		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			i := int(msg.String()[0] - '1')
			if m.ai != nil {
				return m.selectAIChoice(i)
			}
			if m.session.ShowingConsequence() || m.session.Ended() {
				return m, nil
			}
			token, err := m.session.SelectChoice(i)
			if err != nil {
				return m, nil
			}
			m.status = ""
			m.writeStoryContent()
			return m, commitAfterDelay(token)
		}
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, vpCmd
}

// commitAfterDelay holds the consequence on screen, then delivers the
// token back to the update loop.
func commitAfterDelay(token engine.CommitToken) tea.Cmd {
	return tea.Tick(consequenceDelay, func(time.Time) tea.Msg {
		return commitMsg{token: token}
	})
}

// generate runs one generation request off the update loop and reports
// back as a scenarioMsg.
func generate(call func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
		defer cancel()
		return scenarioMsg{err: call(ctx)}
	}
}

// selectAIChoice dispatches the continuation request for the i-th choice
// of the current generated scenario.
func (m ConsoleUI) selectAIChoice(i int) (tea.Model, tea.Cmd) {
	if m.aiLoading {
		return m, nil
	}
	cur := m.ai.Current()
	if cur == nil || i < 0 || i >= len(cur.Choices) {
		return m, nil
	}
	m.aiLoading = true
	m.status = "Generating the next scene..."
	ai := m.ai
	return m, generate(func(ctx context.Context) error {
		return ai.SelectChoice(ctx, i)
	})
}

// handleScenario applies the outcome of a generation request. On error
// the session keeps its last good scenario and the error shows in the
// status line; the first fetch failing returns the reader to the prompt.
func (m ConsoleUI) handleScenario(msg scenarioMsg) (tea.Model, tea.Cmd) {
	m.aiLoading = false
	if msg.err != nil {
		m.status = "Generation failed: " + msg.err.Error()
		if m.ai != nil && m.ai.Current() != nil {
			m.writeAIContent()
		}
		return m, nil
	}

	m.status = ""
	if m.showPromptModal {
		m.showPromptModal = false
		m.storyName = truncate(m.aiPrompt, 48)
		if m.width > 0 && m.height > 0 {
			m.viewport.Width = m.width - 8
			m.viewport.Height = m.height - 5
			m.ready = true
		}
	}
	m.writeAIContent()
	return m, nil
}

func (m *ConsoleUI) writeAIContent() {
	sc := m.ai.Current()
	if sc == nil {
		return
	}

	width := m.viewport.Width - 2
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(strings.ToUpper(m.storyName)) + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	// Earlier scenes stay readable above the current one, the way the
	// saved transcript reads.
	for _, entry := range m.ai.History()[:max(0, len(m.ai.History())-1)] {
		if entry.IsConsequence {
			content.WriteString(consequenceStyle.Render(wordwrap.String("> "+entry.Text, width)) + "\n\n")
		} else {
			content.WriteString(bodyStyle.Render(wordwrap.String(entry.Text, width)) + "\n\n")
		}
	}

	if sc.Title != "" {
		content.WriteString(titleStyle.Render(sc.Title) + "\n\n")
	}
	content.WriteString(bodyStyle.Render(wordwrap.String(sc.Text, width)) + "\n\n")
	for i, c := range sc.Choices {
		line := fmt.Sprintf("%d. %s", i+1, c.Text)
		content.WriteString(choiceStyle.Render(wordwrap.String(line, width)) + "\n")
	}

	m.viewport.SetContent(content.String())
	m.viewport.GotoBottom()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func (m *ConsoleUI) writeStoryContent() {
	width := m.viewport.Width - 2
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(strings.ToUpper(m.storyName)) + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	if sc, ok := m.session.Graph().Get(m.session.Current()); ok && sc.Title != "" {
		content.WriteString(titleStyle.Render(sc.Title) + "\n\n")
	}
	content.WriteString(bodyStyle.Render(wordwrap.String(m.session.StoryText(), width)) + "\n\n")

	switch {
	case m.session.Ended():
		if m.session.ConsequenceText() != "" {
			content.WriteString(consequenceStyle.Render(wordwrap.String(m.session.ConsequenceText(), width)) + "\n\n")
		}
		content.WriteString(endingStyle.Render("THE END") + "\n\n")
		content.WriteString(statusStyle.Render("Press b to step back, c to copy your story, q to quit") + "\n")

	case m.session.ShowingConsequence():
		content.WriteString(consequenceStyle.Render(wordwrap.String(m.session.ConsequenceText(), width)) + "\n")

	default:
		for i, c := range m.session.Choices() {
			line := fmt.Sprintf("%d. %s", i+1, c.Text)
			content.WriteString(choiceStyle.Render(wordwrap.String(line, width)) + "\n")
		}
	}

	m.viewport.SetContent(content.String())
	m.viewport.GotoBottom()
}

// historyText renders the read-through so far as plain text, one
// paragraph per scene or consequence, for clipboard export.
func (m ConsoleUI) historyText() string {
	var b strings.Builder
	b.WriteString(m.storyName + "\n\n")
	for _, entry := range m.session.History() {
		if entry.IsConsequence {
			b.WriteString("> " + entry.Text + "\n\n")
		} else {
			b.WriteString(entry.Text + "\n\n")
		}
	}
	b.WriteString(m.session.StoryText() + "\n")
	return b.String()
}

func (m ConsoleUI) updateStoryModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedStory > 0 {
				m.selectedStory--
			}
		case tea.KeyDown:
			last := len(m.stories) - 1
			if m.gen != nil {
				last++ // the generated-story entry
			}
			if m.selectedStory < last {
				m.selectedStory++
			}
		case tea.KeyEnter:
			if m.gen != nil && m.selectedStory == len(m.stories) {
				m.showStoryModal = false
				m.showPromptModal = true
				m.status = ""
				m.promptInput.Reset()
				return m, textarea.Blink
			}
			item := m.stories[m.selectedStory]
			sess, err := engine.NewSession(item.Graph)
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
			m.session = sess
			m.storyName = item.Name
			m.status = ""
			m.showStoryModal = false
			if m.width > 0 && m.height > 0 {
				m.viewport.Width = m.width - 8
				m.viewport.Height = m.height - 5
				m.ready = true
			}
			m.writeStoryContent()
			return m, nil
		default:
			if msg.String() == "q" {
				m.showQuitModal = true
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updatePromptModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEsc:
			if m.aiLoading {
				return m, nil
			}
			m.showPromptModal = false
			m.showStoryModal = true
			m.status = ""
			return m, nil
		case tea.KeyEnter:
			if m.aiLoading {
				return m, nil
			}
			prompt := strings.TrimSpace(m.promptInput.Value())
			if prompt == "" {
				return m, nil
			}
			m.ai = engine.NewAISession(m.gen)
			m.aiPrompt = prompt
			m.aiLoading = true
			m.status = "Generating your story..."
			ai := m.ai
			return m, generate(func(ctx context.Context) error {
				return ai.Start(ctx, prompt)
			})
		}
	}

	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderStoryModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Choose Your Story"))
	content.WriteString("\n\n")

	names := make([]string, 0, len(m.stories)+1)
	for _, item := range m.stories {
		names = append(names, item.Name)
	}
	if m.gen != nil {
		names = append(names, "✦ New Generated Story")
	}
	for i, name := range names {
		if i == m.selectedStory {
			content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", name)))
		} else {
			content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", name)))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(statusStyle.Render("Use ↑/↓ to navigate, Enter to select, q to exit"))
	if m.status != "" {
		content.WriteString("\n" + statusStyle.Render(m.status))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderPromptModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Start a Generated Story"))
	content.WriteString("\n\n")
	content.WriteString(m.promptInput.View())
	content.WriteString("\n\n")
	if m.aiLoading {
		content.WriteString(statusStyle.Render("Generating your story..."))
	} else {
		content.WriteString(statusStyle.Render("Enter to begin, Esc to go back"))
		if m.status != "" {
			content.WriteString("\n" + statusStyle.Render(m.status))
		}
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the Story?"))
	content.WriteString("\n\n")
	content.WriteString("Your place will not be saved.")
	content.WriteString("\n\n")
	content.WriteString(statusStyle.Render("Press Y to quit, N to keep reading"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showPromptModal {
		return m.renderPromptModal()
	}
	if m.showStoryModal {
		return m.renderStoryModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	footer := "1-9: choose   b: back   c: copy   q: quit"
	if m.ai != nil {
		footer = "1-9: choose   b: back   c: save transcript   q: quit"
	}
	if m.status != "" {
		footer = m.status
	}

	return storyPanelStyle.Width(m.width - 2).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.viewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", m.viewport.Width)),
			statusStyle.Render(footer),
		),
	)
}
