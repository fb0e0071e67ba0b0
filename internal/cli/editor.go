package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/storyline/pkg/dialogue"
	errs "github.com/matzehuels/storyline/pkg/errors"
	dio "github.com/matzehuels/storyline/pkg/io"
	"github.com/matzehuels/storyline/pkg/session"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)

	paneStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	paneFocusStyle = paneStyle.BorderForeground(colorCyan)
	fieldKeyStyle  = lipgloss.NewStyle().Foreground(colorGray).Width(14)
)

// pane identifies which half of the editor has keyboard focus.
type pane int

const (
	paneLines pane = iota
	paneFields
)

// =============================================================================
// EditorModel - Interactive dialogue editor
// =============================================================================

// EditorModel is the bubbletea model for the dialogue editor. The line list
// on the left drives the session selection; the inspector on the right
// edits the session buffer, which reaches the graph when the selection
// changes, on "w", or before an export.
type EditorModel struct {
	ctx    context.Context
	sess   *session.Session
	sink   dio.Sink
	drafts *session.DraftStore
	name   string

	focus  pane
	cursor int
	offset int
	height int

	fields      []string
	fieldCursor int
	input       textinput.Model
	editing     bool

	status    string
	statusErr bool
}

// NewEditorModel creates an editor over sess. Exports go to sink; drafts
// may be nil to disable saving.
func NewEditorModel(ctx context.Context, sess *session.Session, sink dio.Sink, drafts *session.DraftStore, name string) EditorModel {
	input := textinput.New()
	input.Prompt = "› "
	input.CharLimit = 2000
	input.Width = 48

	m := EditorModel{
		ctx:    ctx,
		sess:   sess,
		sink:   sink,
		drafts: drafts,
		name:   name,
		height: 15,
		fields: session.Fields(),
		input:  input,
	}
	if g := sess.Graph(); g.Len() > 0 {
		m.selectLine(0)
	}
	return m
}

// Session returns the session being edited.
func (m EditorModel) Session() *session.Session { return m.sess }

func (m EditorModel) Init() tea.Cmd {
	return nil
}

func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height - 10
		if m.height < 5 {
			m.height = 5
		}
		return m, nil
	case tea.KeyMsg:
		if m.editing {
			return m.updateInput(msg)
		}
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		if m.focus == paneFields {
			return m.updateFields(msg)
		}
		return m.updateLines(msg)
	}
	return m, nil
}

func (m EditorModel) updateLines(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := m.sess.Graph()
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.selectLine(m.cursor - 1)
		}
	case "down", "j":
		if m.cursor < g.Len()-1 {
			m.selectLine(m.cursor + 1)
		}
	case "a":
		n := m.sess.Add()
		m.selectLine(g.Index(n))
		m.setStatus("Added " + n.Title)
	case "d":
		if sel := m.sess.Selected(); sel != nil {
			label := sel.Label()
			m.sess.Remove()
			if m.cursor >= g.Len() {
				m.cursor = g.Len() - 1
			}
			if m.cursor >= 0 {
				m.selectLine(m.cursor)
			} else {
				m.cursor = 0
			}
			m.setStatus("Removed " + label)
		}
	case "enter", "tab", "right", "l":
		if m.sess.Selected() != nil {
			m.focus = paneFields
		}
	default:
		return m.updateCommon(msg)
	}
	return m, nil
}

func (m EditorModel) updateFields(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.fieldCursor > 0 {
			m.fieldCursor--
		}
	case "down", "j":
		if m.fieldCursor < len(m.fields)-1 {
			m.fieldCursor++
		}
	case "esc", "tab", "left", "h":
		m.focus = paneLines
	case "enter":
		buf := m.sess.Buffer()
		if buf == nil {
			m.focus = paneLines
			return m, nil
		}
		value, _ := buf.Get(m.fields[m.fieldCursor])
		m.input.SetValue(value)
		m.input.CursorEnd()
		m.editing = true
		cmd := m.input.Focus()
		return m, cmd
	default:
		return m.updateCommon(msg)
	}
	return m, nil
}

func (m EditorModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if buf := m.sess.Buffer(); buf != nil {
			buf.Set(m.fields[m.fieldCursor], m.input.Value())
		}
		m.editing = false
		m.input.Blur()
		return m, nil
	case "esc":
		m.editing = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// updateCommon handles keys shared by both panes.
func (m EditorModel) updateCommon(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "w":
		m.flush()
	case "e":
		m.export()
	case "s":
		m.saveDraft()
	}
	return m, nil
}

// =============================================================================
// Session Actions
// =============================================================================

// selectLine moves the cursor to line i and selects it, flushing the
// previous buffer. When the flush is rejected the selection stays put.
func (m *EditorModel) selectLine(i int) {
	nodes := m.sess.Graph().Nodes()
	if i < 0 || i >= len(nodes) {
		return
	}
	warnings, err := m.sess.Select(nodes[i])
	if err != nil {
		m.setError(err)
		return
	}
	m.cursor = i
	m.keepVisible()
	m.reportWarnings(warnings)
}

func (m *EditorModel) flush() {
	warnings, err := m.sess.Flush()
	if err != nil {
		m.setError(err)
		return
	}
	if !m.reportWarnings(warnings) {
		m.setStatus("Applied")
	}
}

func (m *EditorModel) export() {
	res, err := m.sess.Export(m.ctx, m.sink)
	if err != nil {
		m.setError(err)
		return
	}
	if !m.reportWarnings(res.Warnings) {
		m.setStatus(fmt.Sprintf("Exported %d lines to %s", res.Lines, res.Sink))
	}
}

func (m *EditorModel) saveDraft() {
	if m.drafts == nil {
		m.setStatus("Drafts are disabled")
		return
	}
	if _, err := m.sess.Flush(); err != nil {
		m.setError(err)
		return
	}
	if err := m.drafts.Save(m.ctx, m.name, m.sess.Graph()); err != nil {
		m.setError(err)
		return
	}
	m.setStatus("Saved draft " + m.name)
}

func (m *EditorModel) reportWarnings(ws dialogue.Warnings) bool {
	if len(ws) == 0 {
		return false
	}
	msgs := make([]string, len(ws))
	for i, w := range ws {
		msgs[i] = w.Message
	}
	m.status = strings.Join(msgs, "; ")
	m.statusErr = true
	return true
}

func (m *EditorModel) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *EditorModel) setError(err error) {
	m.status, m.statusErr = errs.UserMessage(err), true
}

func (m *EditorModel) keepVisible() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

// =============================================================================
// View
// =============================================================================

func (m EditorModel) View() string {
	var b strings.Builder

	title := "Dialogue Editor"
	if m.sess.Dirty() {
		title += " *"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ move  ⏎ edit  tab switch  a add  d delete  w apply  e export  s save  q quit"))
	b.WriteString("\n\n")

	left, right := paneStyle, paneStyle
	if m.focus == paneLines {
		left = paneFocusStyle
	} else {
		right = paneFocusStyle
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		left.Render(m.linesView()),
		right.Render(m.fieldsView()),
	))
	b.WriteString("\n")
	b.WriteString(m.edgesView())

	if m.status != "" {
		b.WriteString("\n")
		if m.statusErr {
			b.WriteString(StyleWarning.Render(iconWarning + " " + m.status))
		} else {
			b.WriteString(StyleSuccess.Render(iconSuccess + " " + m.status))
		}
	}
	return b.String()
}

func (m EditorModel) linesView() string {
	g := m.sess.Graph()
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return listDimStyle.Render("No lines yet. Press a to add one.")
	}

	end := min(m.offset+m.height, len(nodes))
	outgoing := make(map[*dialogue.Node]int)
	for _, e := range g.Edges() {
		outgoing[e.From]++
	}

	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		n := nodes[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		id := n.ID
		if id == "" {
			id = "—"
		}
		rows = append(rows, []string{cursor, n.Title, id, n.Speaker, fmt.Sprint(outgoing[n])})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("", "Line", "ID", "Speaker", "Out").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.offset+row == m.cursor {
				return listSelectedStyle
			}
			if nodes[m.offset+row].ID == "" {
				return listDimStyle
			}
			return listNormalStyle
		})

	return t.Render() + "\n" + listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(nodes)))
}

func (m EditorModel) fieldsView() string {
	buf := m.sess.Buffer()
	if buf == nil {
		return listDimStyle.Render("No line selected")
	}

	var b strings.Builder
	for i, f := range m.fields {
		value, _ := buf.Get(f)
		line := fieldKeyStyle.Render(f) + " "
		switch {
		case m.editing && i == m.fieldCursor:
			line += m.input.View()
		case i == m.fieldCursor && m.focus == paneFields:
			line += listSelectedStyle.Render(orDash(value))
		default:
			line += listNormalStyle.Render(orDash(value))
		}
		b.WriteString(line)
		if i < len(m.fields)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// edgesView summarizes the connectors of the selected line.
func (m EditorModel) edgesView() string {
	g := m.sess.Graph()
	sel := m.sess.Selected()

	var parts []string
	for _, e := range g.Edges() {
		if sel != nil && e.From == sel {
			parts = append(parts, fmt.Sprintf("%s %s %s", e.Kind, iconArrow, e.To.Label()))
		}
	}
	line := fmt.Sprintf("%d lines · %d edges", g.Len(), len(g.Edges()))
	if missing := len(g.Unresolved()); missing > 0 {
		line += fmt.Sprintf(" · %d unresolved", missing)
	}
	if len(parts) > 0 {
		line += " · " + strings.Join(parts, ", ")
	}
	return listDimStyle.Render(line)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
