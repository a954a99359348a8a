// Package tui is a terminal browser for a document's undo tree.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"carveout/internal/core"
)

type row struct {
	id    core.NodeID
	depth int
}

// HistoryModel lists every protocol node depth first and lets the user move
// head around the tree.
type HistoryModel struct {
	manager *core.ContentManager
	title   string

	rows    []row
	cursor  int
	changed bool

	message    string
	messageErr bool

	width  int
	height int
}

// NewHistoryModel creates a browser over m. The cursor starts on head.
func NewHistoryModel(m *core.ContentManager, title string) *HistoryModel {
	h := &HistoryModel{manager: m, title: title}
	h.refresh()
	h.cursorToHead()
	return h
}

// Changed reports whether head moved or branch selections changed while
// browsing.
func (h *HistoryModel) Changed() bool { return h.changed }

// Cursor returns the node under the cursor.
func (h *HistoryModel) Cursor() core.NodeID {
	if h.cursor < len(h.rows) {
		return h.rows[h.cursor].id
	}
	return core.RootID
}

// Init initializes the model
func (h *HistoryModel) Init() tea.Cmd { return nil }

// Update handles messages for the browser
func (h *HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = msg.Width
		h.height = msg.Height
		return h, nil

	case tea.KeyMsg:
		h.message = ""

		switch {
		case key.Matches(msg, HistoryKeys.Quit):
			return h, tea.Quit

		case key.Matches(msg, HistoryKeys.Up):
			if h.cursor > 0 {
				h.cursor--
			}

		case key.Matches(msg, HistoryKeys.Down):
			if h.cursor < len(h.rows)-1 {
				h.cursor++
			}

		case key.Matches(msg, HistoryKeys.PrevBr):
			h.shiftBranch(-1)

		case key.Matches(msg, HistoryKeys.NextBr):
			h.shiftBranch(1)

		case key.Matches(msg, HistoryKeys.Checkout):
			target := h.Cursor()
			if err := h.manager.Checkout(target); err != nil {
				h.fail(err)
			} else {
				h.changed = true
				h.succeed(fmt.Sprintf("checked out node %d", target))
			}
			h.cursorToHead()

		case key.Matches(msg, HistoryKeys.Undo):
			if h.manager.UndoCmd() {
				h.changed = true
				h.succeed("undone")
			} else {
				h.fail(errors.New("nothing to undo"))
			}
			h.cursorToHead()

		case key.Matches(msg, HistoryKeys.Redo):
			ok, err := h.manager.RedoCmd()
			switch {
			case err != nil:
				h.fail(err)
			case ok:
				h.changed = true
				h.succeed("redone")
			default:
				h.fail(errors.New("nothing to redo"))
			}
			h.refresh()
			h.cursorToHead()
		}
	}
	return h, nil
}

func (h *HistoryModel) shiftBranch(step int) {
	head := h.manager.Head()
	if len(head.Children) < 2 {
		h.fail(errors.New("head has no other branch"))
		return
	}
	next := (head.Selected + step + len(head.Children)) % len(head.Children)
	if err := h.manager.SelectBranch(next); err != nil {
		h.fail(err)
		return
	}
	h.changed = true
	h.succeed(fmt.Sprintf("branch %d of %d", next+1, len(head.Children)))
}

func (h *HistoryModel) succeed(msg string) {
	h.message = msg
	h.messageErr = false
}

func (h *HistoryModel) fail(err error) {
	h.message = err.Error()
	h.messageErr = true
}

func (h *HistoryModel) refresh() {
	p := h.manager.Protocol()
	h.rows = h.rows[:0]
	var walk func(id core.NodeID, depth int)
	walk = func(id core.NodeID, depth int) {
		h.rows = append(h.rows, row{id: id, depth: depth})
		n, _ := p.Node(id)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(core.RootID, 0)
	if h.cursor >= len(h.rows) {
		h.cursor = len(h.rows) - 1
	}
}

func (h *HistoryModel) cursorToHead() {
	head := h.manager.Protocol().Head()
	for i, r := range h.rows {
		if r.id == head {
			h.cursor = i
			return
		}
	}
}

// View renders the tree.
func (h *HistoryModel) View() string {
	var b strings.Builder

	b.WriteString(Title.Render(h.title))
	b.WriteString("\n")
	b.WriteString(Subtitle.Render(fmt.Sprintf("%d strokes, %d history nodes", h.manager.Access().Len(), len(h.rows))))
	b.WriteString("\n\n")

	applied, redo := h.paths()
	head := h.manager.Protocol().Head()
	for i, r := range h.rows {
		b.WriteString(h.renderRow(r, i == h.cursor, r.id == head, applied[r.id], redo[r.id]))
		b.WriteString("\n")
	}

	if h.message != "" {
		b.WriteString("\n")
		if h.messageErr {
			b.WriteString(ErrorMsg.Render(h.message))
		} else {
			b.WriteString(Success.Render(h.message))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderHelpLine())

	return App.Render(b.String())
}

// paths returns the nodes from root to head and the nodes redo would visit.
func (h *HistoryModel) paths() (applied, redo map[core.NodeID]bool) {
	p := h.manager.Protocol()
	applied = make(map[core.NodeID]bool)
	for _, id := range p.PathToHead() {
		applied[id] = true
	}
	redo = make(map[core.NodeID]bool)
	for n, _ := p.Node(p.Head()); n.Selected >= 0 && n.Selected < len(n.Children); {
		next := n.Children[n.Selected]
		redo[next] = true
		n, _ = p.Node(next)
	}
	return applied, redo
}

func (h *HistoryModel) renderRow(r row, cursor, head, applied, redo bool) string {
	n, _ := h.manager.Protocol().Node(r.id)
	indent := strings.Repeat("  ", r.depth)
	mark := MarkNode
	if head {
		mark = MarkHead
	}
	text := fmt.Sprintf("%d %s", r.id, n.Description)
	if len(n.Children) > 1 {
		text += fmt.Sprintf(" [%d/%d]", n.Selected+1, len(n.Children))
	}

	var style lipgloss.Style
	switch {
	case cursor:
		style = NodeCursor
	case head:
		style = NodeHead
	case applied:
		style = NodeApplied
	case redo:
		style = NodeRedo
	default:
		style = NodeOther
	}
	return indent + TreeBranch.Render(mark) + style.Render(text)
}

func renderHelpLine() string {
	bindings := []key.Binding{
		HistoryKeys.Up, HistoryKeys.Down, HistoryKeys.PrevBr, HistoryKeys.NextBr,
		HistoryKeys.Checkout, HistoryKeys.Undo, HistoryKeys.Redo, HistoryKeys.Quit,
	}
	var parts []string
	for _, k := range bindings {
		help := k.Help()
		parts = append(parts, fmt.Sprintf("%s %s",
			HelpKey.Render(help.Key),
			HelpDesc.Render(help.Desc),
		))
	}
	return strings.Join(parts, HelpSeparator.String())
}
