// Package picker lets the user choose which chats of a folder link to join.
package picker

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/folderlink/internal/model"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)
)

// KeyMap defines the picker key bindings.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	All     key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns vim-style bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("j/k", "move"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "space", "x"),
			key.WithHelp("space", "toggle"),
		),
		All: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "all/none"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "join"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c", "q"),
			key.WithHelp("q/esc", "cancel"),
		),
	}
}

// Item is a chat offered for joining.
type Item struct {
	Peer          model.Peer
	AlreadyMember bool
}

// Picker is a multi-select list of chats. Chats the user already belongs to
// are shown but cannot be toggled.
type Picker struct {
	title     string
	items     []Item
	checked   map[model.PeerID]bool
	keys      KeyMap
	cursor    int
	confirmed bool
	cancelled bool
	width     int
	height    int
}

// New creates a Picker with every joinable chat preselected.
func New(title string, items []Item) Picker {
	checked := make(map[model.PeerID]bool, len(items))
	for _, it := range items {
		if !it.AlreadyMember {
			checked[it.Peer.ID] = true
		}
	}
	return Picker{
		title:   title,
		items:   items,
		checked: checked,
		keys:    DefaultKeyMap(),
		width:   80,
		height:  24,
	}
}

// FromContents builds the items for a checked folder link.
func FromContents(contents *model.FolderLinkContents) []Item {
	items := make([]Item, len(contents.Peers))
	for i, p := range contents.Peers {
		items[i] = Item{Peer: p, AlreadyMember: contents.AlreadyMemberPeerIDs.Contains(p.ID)}
	}
	return items
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Cancel):
			p.cancelled = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Confirm):
			p.confirmed = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.items)-1 {
				p.cursor++
			}

		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}

		case key.Matches(msg, p.keys.Toggle):
			if p.cursor < len(p.items) && !p.items[p.cursor].AlreadyMember {
				id := p.items[p.cursor].Peer.ID
				p.checked[id] = !p.checked[id]
			}

		case key.Matches(msg, p.keys.All):
			p.toggleAll()
		}
	}

	return p, nil
}

// toggleAll checks every joinable chat, or clears them all if all are checked.
func (p *Picker) toggleAll() {
	all := true
	for _, it := range p.items {
		if !it.AlreadyMember && !p.checked[it.Peer.ID] {
			all = false
			break
		}
	}
	for _, it := range p.items {
		if !it.AlreadyMember {
			p.checked[it.Peer.ID] = !all
		}
	}
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d chats)", p.title, len(p.items))))
	b.WriteString("\n\n")

	for i, it := range p.items {
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		box := "[ ]"
		switch {
		case it.AlreadyMember:
			box = "[=]"
		case p.checked[it.Peer.ID]:
			box = "[x]"
		}

		b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, box, style.Render(it.Peer.Title)))
		b.WriteString(fmt.Sprintf("       %s\n", detailStyle.Render(detail(it))))
	}

	b.WriteString("\n")
	b.WriteString(detailStyle.Render("j/k: move  space: toggle  a: all/none  enter: join  q/esc: cancel"))

	return b.String()
}

func detail(it Item) string {
	d := it.Peer.Kind.String()
	if it.Peer.Username != "" {
		d += " @" + it.Peer.Username
	}
	if it.AlreadyMember {
		d += " (joined)"
	}
	return d
}

// Selected returns the checked peer ids in list order, or nil if cancelled.
func (p Picker) Selected() []model.PeerID {
	if p.cancelled || !p.confirmed {
		return nil
	}
	ids := []model.PeerID{}
	for _, it := range p.items {
		if p.checked[it.Peer.ID] {
			ids = append(ids, it.Peer.ID)
		}
	}
	return ids
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}
