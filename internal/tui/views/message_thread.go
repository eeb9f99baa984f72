package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/caredesk/caredesk/internal/care"
	"github.com/caredesk/caredesk/internal/messaging"
	"github.com/caredesk/caredesk/internal/tui/ui"
)

// MessageThread displays the open conversation: message history, presence
// and typing state in the title, and the composer with attachment/reply
// indicators.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	viewerID string
	messages *tview.TextView
	composer *tview.InputField
	onSend   func()
	onChange func(text string)
	onTop    func()
}

// NewMessageThread creates the message thread view.
func NewMessageThread(theme *ui.Theme, viewerID string) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		viewerID: viewerID,
		messages: messages,
		composer: composer,
	}

	composer.SetChangedFunc(func(text string) {
		if mt.onChange != nil {
			mt.onChange(text)
		}
	})
	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mt.onSend != nil {
			mt.onSend()
		}
	})
	// Scrolling past the top of the history pages older messages in.
	messages.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyUp || event.Rune() == 'k' {
			if row, _ := messages.GetScrollOffset(); row == 0 && mt.onTop != nil {
				mt.onTop()
				return nil
			}
		}
		return event
	})

	return mt
}

// SetOnSend sets the callback for the Enter key in the composer.
func (mt *MessageThread) SetOnSend(fn func()) { mt.onSend = fn }

// SetOnChange sets the callback for composer text changes.
func (mt *MessageThread) SetOnChange(fn func(text string)) { mt.onChange = fn }

// SetOnTop sets the callback for scrolling past the top of the history.
func (mt *MessageThread) SetOnTop(fn func()) { mt.onTop = fn }

// Composer returns the input field for focus management.
func (mt *MessageThread) Composer() *tview.InputField { return mt.composer }

// Messages returns the history text view for focus management.
func (mt *MessageThread) Messages() *tview.TextView { return mt.messages }

// Update re-renders the thread from the selection and compose state.
func (mt *MessageThread) Update(sel *messaging.SelectionView, compose messaging.ComposeView) {
	if sel == nil {
		return
	}

	title := " " + sel.Counterpart.DisplayName
	if sel.Presence.IsOnline {
		title += " [green](online)[-]"
	} else if !sel.Presence.LastActive.IsZero() {
		title += fmt.Sprintf(" [gray](last active %s)[-]", formatTimestamp(sel.Presence.LastActive))
	}
	if sel.CounterpartTyping {
		title += " [yellow]typing...[-]"
	}
	mt.messages.SetTitle(title + " ")

	// Preserve the scroll offset across re-renders unless pinned to the end.
	row, col := mt.messages.GetScrollOffset()
	mt.messages.Clear()
	for _, m := range sel.Messages {
		mt.renderMessage(m)
	}
	if row == 0 && !sel.OlderExhausted {
		mt.messages.ScrollTo(row, col)
	} else {
		mt.messages.ScrollToEnd()
	}

	mt.renderComposerTitle(compose)
	if mt.composer.GetText() != compose.Text {
		mt.composer.SetText(compose.Text)
	}
}

func (mt *MessageThread) renderMessage(m care.Message) {
	sender := m.SenderID
	if m.SenderID == mt.viewerID {
		sender = "You"
	}
	ts := m.Timestamp.Format("15:04")

	if !m.Renderable() {
		label := "message unsent"
		if m.Status == care.MessageDeleted {
			label = "message deleted"
		}
		_, _ = fmt.Fprintf(mt.messages, "[::b]%s[-:-:-] [::d]%s[-:-:-]\n[gray]« %s »[-]\n\n",
			tview.Escape(sender), ts, label)
		return
	}

	if m.Reply != nil {
		_, _ = fmt.Fprintf(mt.messages, "[gray]  ┌ %s: %s[-]\n",
			tview.Escape(m.Reply.SenderName),
			tview.Escape(sanitizeForTerminal(truncate(m.Reply.Content, 60))))
	}

	body := tview.Escape(sanitizeForTerminal(m.Content))
	if m.Kind != care.KindText {
		body = fmt.Sprintf("[%s] %s", m.Kind, body)
	}
	_, _ = fmt.Fprintf(mt.messages, "[::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
		tview.Escape(sender), ts, body)
}

func (mt *MessageThread) renderComposerTitle(compose messaging.ComposeView) {
	title := " Compose (i to focus) "
	switch {
	case compose.FileErr != nil:
		title = fmt.Sprintf(" [red]%s[-] ", compose.FileErr)
	case compose.Staged != nil && compose.Reply != nil:
		title = fmt.Sprintf(" attach: %s | replying to %s ",
			compose.Staged.Name, compose.Reply.SenderName)
	case compose.Staged != nil:
		title = fmt.Sprintf(" attach: %s ", compose.Staged.Name)
	case compose.Reply != nil:
		title = fmt.Sprintf(" replying to %s ", compose.Reply.SenderName)
	}
	mt.composer.SetTitle(title)
}

// truncate shortens to n runes, never splitting a multibyte character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
