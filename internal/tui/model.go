// ABOUTME: Interactive terminal menu browser built on bubbletea.
// ABOUTME: Debounces typed search text, toggles category chips, and drops superseded results.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/littlelemon/internal/menu"
	"github.com/harperreed/littlelemon/internal/models"
)

// DebounceInterval is how long typing must pause before a text query runs.
const DebounceInterval = 500 * time.Millisecond

// Filterer is the part of menu.Service the browser uses.
type Filterer interface {
	Filter(ctx context.Context, f models.Filter) (*menu.FilterResult, error)
}

type debounceMsg struct{ tag int }

type resultMsg struct {
	res *menu.FilterResult
	err error
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F4CE14")).Background(lipgloss.Color("#495E57")).Padding(0, 1)
	chipStyle     = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#495E57"))
	chipOnStyle   = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#495E57"))
	dishStyle     = lipgloss.NewStyle().Bold(true)
	priceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#495E57"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EE9972"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F4CE14"))
)

// Model is the browser state.
type Model struct {
	svc      Filterer
	ctx      context.Context
	input    textinput.Model
	selected map[string]bool
	items    []models.MenuItem
	cursor   int
	tag      int
	lastSeq  uint64
	err      error
	notice   string
	width    int
}

// New builds a browser over svc, showing initial items until the first query returns.
// notice is shown above the list, e.g. a failed download.
func New(ctx context.Context, svc Filterer, initial []models.MenuItem, notice string) Model {
	ti := textinput.New()
	ti.Placeholder = "Enter search phrase"
	ti.Prompt = "🔍 "
	ti.Focus()

	return Model{
		svc:      svc,
		ctx:      ctx,
		input:    ti,
		selected: make(map[string]bool),
		items:    initial,
		notice:   notice,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Filter returns the filter the current input and chips describe.
func (m Model) Filter() models.Filter {
	f := models.Filter{Text: m.input.Value()}
	for _, c := range models.AllCategories {
		if m.selected[string(c)] {
			f.Categories = append(f.Categories, string(c))
		}
	}
	return f
}

// Items returns the items currently listed.
func (m Model) Items() []models.MenuItem {
	return m.items
}

// Update handles keys, debounce ticks, and query results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case tea.KeyDown:
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
			return m, nil
		case tea.KeyTab:
			if m.input.Focused() {
				m.input.Blur()
				return m, nil
			}
			return m, m.input.Focus()
		case tea.KeyRunes:
			// Digits are text while the search box has focus; alt+digit
			// or tabbing to the chips makes them toggles.
			if msg.Alt || !m.input.Focused() {
				if c, ok := chipForKey(string(msg.Runes)); ok {
					m.selected[c] = !m.selected[c]
					// Toggles query at once; bumping the tag drops a pending debounce.
					m.tag++
					return m, m.query()
				}
			}
			if !m.input.Focused() {
				return m, nil
			}
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() == before {
			return m, cmd
		}
		m.tag++
		tag := m.tag
		return m, tea.Batch(cmd, tea.Tick(DebounceInterval, func(time.Time) tea.Msg {
			return debounceMsg{tag: tag}
		}))

	case debounceMsg:
		if msg.tag != m.tag {
			return m, nil
		}
		return m, m.query()

	case resultMsg:
		if errors.Is(msg.err, menu.ErrSuperseded) {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if msg.res.Seq < m.lastSeq {
			return m, nil
		}
		m.lastSeq = msg.res.Seq
		m.items = msg.res.Items
		m.err = nil
		if m.cursor >= len(m.items) {
			m.cursor = max(len(m.items)-1, 0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// query issues a filter for the current state.
func (m Model) query() tea.Cmd {
	f := m.Filter()
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		res, err := svc.Filter(ctx, f)
		return resultMsg{res: res, err: err}
	}
}

// chipForKey maps keys 1-4 to the known categories.
func chipForKey(key string) (string, bool) {
	if len(key) != 1 || key[0] < '1' || key[0] > '0'+byte(len(models.AllCategories)) {
		return "", false
	}
	return string(models.AllCategories[key[0]-'1']), true
}

// View renders the browser.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Little Lemon"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	b.WriteString(mutedStyle.Render("ORDER FOR DELIVERY!"))
	b.WriteString("\n")
	var chips []string
	for i, c := range models.AllCategories {
		label := fmt.Sprintf("%d %s", i+1, models.CategoryLabel(string(c)))
		if m.selected[string(c)] {
			chips = append(chips, chipOnStyle.Render(label))
		} else {
			chips = append(chips, chipStyle.Render(label))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, chips...))
	b.WriteString("\n\n")

	if m.notice != "" {
		b.WriteString(errorStyle.Render(m.notice))
		b.WriteString("\n\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	if len(m.items) == 0 {
		b.WriteString(mutedStyle.Render("No menu items."))
		b.WriteString("\n")
	}
	for i, item := range m.items {
		cursor := "  "
		name := dishStyle.Render(item.Title)
		if i == m.cursor {
			cursor = selectedStyle.Render("> ")
			name = selectedStyle.Render(item.Title)
		}
		b.WriteString(cursor + name + "\n")
		for _, line := range descriptionLines(item.Description, m.descriptionWidth()) {
			b.WriteString("  " + mutedStyle.Render(line) + "\n")
		}
		b.WriteString("  " + priceStyle.Render(item.DisplayPrice()) + "\n")
	}

	b.WriteString("\n")
	if m.input.Focused() {
		b.WriteString(mutedStyle.Render("type to search • tab or alt+1-4 for categories • ↑/↓ move • esc quit"))
	} else {
		b.WriteString(mutedStyle.Render("1-4 toggle categories • tab back to search • ↑/↓ move • esc quit"))
	}
	return b.String()
}

func (m Model) descriptionWidth() int {
	if m.width > 10 {
		return m.width - 4
	}
	return 60
}

// descriptionLines wraps text to width and keeps at most two lines,
// ending the second with an ellipsis when text was cut.
func descriptionLines(text string, width int) []string {
	var lines []string
	var cur string
	for _, w := range strings.Fields(text) {
		if cur != "" && len(cur)+1+len(w) > width {
			lines = append(lines, cur)
			cur = w
			continue
		}
		if cur == "" {
			cur = w
		} else {
			cur += " " + w
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	if len(lines) <= 2 {
		return lines
	}

	second := []rune(lines[1])
	if len(second) >= width {
		second = second[:width-1]
	}
	return []string{lines[0], string(second) + "…"}
}

// Run starts the browser full screen and blocks until it quits.
func Run(ctx context.Context, svc Filterer, initial []models.MenuItem, notice string) error {
	p := tea.NewProgram(New(ctx, svc, initial, notice), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
