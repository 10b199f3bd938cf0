// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/catachess/catchat-tui/internal/model"
	"github.com/catachess/catchat-tui/internal/route"
	"github.com/catachess/catchat-tui/internal/ui/styles"
)

// MaxMessageLength bounds the composer.
const MaxMessageLength = 4000

const composerHeight = 3

// ThreadView shows the open thread and its composer.
type ThreadView struct {
	kind     route.Kind
	title    string
	subtitle string

	messages []model.ThreadMessage
	meID     string

	loading  bool
	sending  bool
	canPost  bool
	postNote string

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	markdown *Markdown
	useMD    bool
	mdStyle  string
	compact  bool

	focused bool
	width   int
	height  int
	theme   *styles.Theme
}

// NewThreadView creates an empty thread view.
func NewThreadView(theme *styles.Theme) *ThreadView {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.CharLimit = MaxMessageLength
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.SetHeight(composerHeight)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))

	sp := spinner.New()
	sp.Spinner = styles.LineSpinner.Bubble()
	sp.Style = theme.Spinner

	return &ThreadView{
		viewport: viewport.New(0, 0),
		input:    ta,
		spinner:  sp,
		canPost:  true,
		theme:    theme,
	}
}

// SetSize sets the outer size.
func (v *ThreadView) SetSize(width, height int) {
	v.width, v.height = width, height
	v.input.SetWidth(max(width-4, 10))
	if v.useMD {
		v.markdown = NewMarkdown(v.mdStyle, v.bubbleWidth())
	}
	v.layout()
}

func (v *ThreadView) layout() {
	h := v.height - lipgloss.Height(v.headerView())
	if v.showComposer() {
		h -= composerHeight + 2
	} else if v.postNote != "" {
		h--
	}
	v.viewport.Width = v.width
	v.viewport.Height = max(h, 1)
	v.refresh(false)
}

// SetThread sets the header for kind. It does not touch the messages.
func (v *ThreadView) SetThread(kind route.Kind, title, subtitle string) {
	v.kind, v.title, v.subtitle = kind, title, subtitle
	v.layout()
}

// SetMessages replaces the list. The view follows new messages when it was
// scrolled to the bottom.
func (v *ThreadView) SetMessages(msgs []model.ThreadMessage, meID string) {
	follow := v.viewport.AtBottom() || len(v.messages) == 0
	changed := len(msgs) != len(v.messages) || meID != v.meID ||
		(len(msgs) > 0 && msgs[len(msgs)-1].ID != v.messages[len(v.messages)-1].ID)
	v.messages = msgs
	v.meID = meID
	if changed {
		v.refresh(follow)
	}
}

// Messages returns the displayed messages.
func (v *ThreadView) Messages() []model.ThreadMessage { return v.messages }

// SetLoading toggles the loading spinner.
func (v *ThreadView) SetLoading(loading bool) tea.Cmd {
	was := v.loading
	v.loading = loading
	v.refresh(true)
	if loading && !was {
		return v.spinner.Tick
	}
	return nil
}

// SetSending marks a send in flight; the composer keeps its text until
// the send settles.
func (v *ThreadView) SetSending(sending bool) { v.sending = sending }

// Sending reports a send in flight.
func (v *ThreadView) Sending() bool { return v.sending }

// SetCanPost shows or hides the composer. note replaces it when hidden.
func (v *ThreadView) SetCanPost(canPost bool, note string) {
	v.canPost, v.postNote = canPost, note
	v.layout()
}

// SetMarkdown enables Markdown rendering with a glamour style.
func (v *ThreadView) SetMarkdown(enabled bool, style string) {
	v.useMD = enabled
	v.mdStyle = style
	if enabled && !v.markdown.Matches(style, v.bubbleWidth()) {
		v.markdown = NewMarkdown(style, v.bubbleWidth())
	}
	v.refresh(false)
}

// SetCompact drops blank lines between messages.
func (v *ThreadView) SetCompact(compact bool) {
	v.compact = compact
	v.refresh(false)
}

// ClearInput empties the composer.
func (v *ThreadView) ClearInput() { v.input.Reset() }

// InputValue returns the composer text.
func (v *ThreadView) InputValue() string { return v.input.Value() }

// Focus gives the composer keyboard focus.
func (v *ThreadView) Focus() tea.Cmd {
	v.focused = true
	return v.input.Focus()
}

// Blur removes keyboard focus.
func (v *ThreadView) Blur() {
	v.focused = false
	v.input.Blur()
}

// Focused reports keyboard focus.
func (v *ThreadView) Focused() bool { return v.focused }

func (v *ThreadView) showComposer() bool {
	return v.kind != route.None && v.canPost
}

// Update handles keys, spinner ticks and scrolling.
func (v *ThreadView) Update(msg tea.Msg) (*ThreadView, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !v.loading {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		v.refresh(true)
		return v, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case tea.KeyMsg:
		if !v.focused {
			return v, nil
		}
		switch {
		case key.Matches(msg, keys.PageUp), key.Matches(msg, keys.PageDown):
			var cmd tea.Cmd
			v.viewport, cmd = v.viewport.Update(msg)
			return v, cmd
		case msg.Type == tea.KeyEnter && !msg.Alt:
			return v, v.send()
		}
		if !v.showComposer() {
			return v, nil
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *ThreadView) send() tea.Cmd {
	if !v.showComposer() || v.sending {
		return nil
	}
	content := strings.TrimSpace(v.input.Value())
	if content == "" {
		return nil
	}
	return emit(SendMsg{Content: content})
}

func (v *ThreadView) bubbleWidth() int {
	return max(v.width*3/4, 20)
}

// refresh re-renders the message list into the viewport.
func (v *ThreadView) refresh(gotoBottom bool) {
	v.viewport.SetContent(v.renderMessages())
	if gotoBottom {
		v.viewport.GotoBottom()
	}
}

func (v *ThreadView) renderMessages() string {
	t := v.theme
	center := func(s string) string {
		return lipgloss.Place(v.width, v.viewport.Height, lipgloss.Center, lipgloss.Center, s)
	}

	switch {
	case v.kind == route.None:
		return center(t.EmptyThread.Render("Select a conversation, or press Ctrl+N to start one."))
	case v.loading && len(v.messages) == 0:
		return center(v.spinner.View() + " " + t.Muted.Render("Loading messages..."))
	case len(v.messages) == 0 && v.kind == route.Broadcast:
		return center(t.EmptyThread.Render("No broadcasts yet."))
	case len(v.messages) == 0:
		return center(t.EmptyThread.Render("No messages yet. Say hello!"))
	}

	sep := "\n\n"
	if v.compact {
		sep = "\n"
	}
	blocks := make([]string, len(v.messages))
	for i, m := range v.messages {
		blocks[i] = v.renderMessage(m)
	}
	return strings.Join(blocks, sep)
}

func (v *ThreadView) renderMessage(m model.ThreadMessage) string {
	t := v.theme
	own := m.SenderID == v.meID
	width := v.bubbleWidth()

	var body string
	if v.useMD && v.markdown != nil {
		body = v.markdown.Render(m.Content, width-4)
	} else {
		body = wrapPlain(m.Content, width-4)
	}

	meta := t.Timestamp.Render(ClockTime(m.CreatedAt))
	if v.kind != route.Direct && !own {
		name := m.SenderName
		if name == "" {
			name = "unknown"
		}
		meta = t.Sender.Render(name) + " " + meta
	} else if own && v.kind != route.Direct {
		meta = t.OwnSender.Render("you") + " " + meta
	}

	if v.kind == route.Broadcast {
		return t.BroadcastItem.Render(meta + "\n" + body)
	}

	style := t.PeerBubble
	if own {
		style = t.OwnBubble
	}
	bubble := lipgloss.JoinVertical(lipgloss.Left, meta, style.MaxWidth(width).Render(body))
	if own {
		return lipgloss.PlaceHorizontal(v.width, lipgloss.Right, bubble)
	}
	return bubble
}

func (v *ThreadView) headerView() string {
	t := v.theme
	if v.kind == route.None {
		return ""
	}
	line := t.ThreadTitle.Render(v.title)
	if v.subtitle != "" {
		line += "  " + t.ThreadSubtitle.Render(v.subtitle)
	}
	return t.ThreadHeader.Width(max(v.width, 1)).Render(line)
}

// View renders the thread.
func (v *ThreadView) View() string {
	t := v.theme
	parts := []string{}
	if h := v.headerView(); h != "" {
		parts = append(parts, h)
	}
	parts = append(parts, v.viewport.View())

	switch {
	case v.showComposer():
		frame := t.InputContainer
		if v.focused {
			frame = t.InputContainerFocused
		}
		composer := v.input.View()
		if v.sending {
			composer = t.Muted.Render("Sending...")
		}
		parts = append(parts, frame.Width(max(v.width-2, 1)).Render(composer))
	case v.kind != route.None && v.postNote != "":
		parts = append(parts, t.Muted.Render(v.postNote))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
