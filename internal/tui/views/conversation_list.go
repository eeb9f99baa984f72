package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/caredesk/caredesk/internal/messaging"
	"github.com/caredesk/caredesk/internal/tui/ui"
)

// ConversationList is the messages page's conversation table.
type ConversationList struct {
	*tview.Table
	theme *ui.Theme
	convs []messaging.ConversationView
}

// NewConversationList creates the conversation table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{Table: table, theme: theme}
}

// Update refreshes the table with a new list.
func (cl *ConversationList) Update(convs []messaging.ConversationView) {
	cl.convs = convs
	cl.render()
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" SPECIALTY", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	for i, c := range cl.convs {
		row := i + 1
		name := c.Counterpart.DisplayName
		if name == "" {
			name = c.ID
		}
		if c.Unread > 0 {
			name = fmt.Sprintf("(%d) %s", c.Unread, name)
		}
		if c.Muted {
			name += " [m]"
		}

		preview := ""
		if c.LastMessage != nil {
			preview = c.LastMessage.Content
		}

		nameColor := cl.theme.FgColor
		if c.Unread > 0 {
			nameColor = cl.theme.AccentColor
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).SetExpansion(1).SetTextColor(nameColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(c.Counterpart.Specialty)).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(preview))).SetExpansion(2).SetTextColor(cl.theme.MutedColor))
		cl.SetCell(row, 3, tview.NewTableCell(formatTimestamp(c.UpdatedAt)).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
	}

	cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.convs)))
}

// Selected returns the conversation id under the cursor, or empty.
func (cl *ConversationList) Selected() string {
	row, _ := cl.GetSelection()
	idx := row - 1 // account for header
	if idx < 0 || idx >= len(cl.convs) {
		return ""
	}
	return cl.convs[idx].ID
}

// SelectedView returns the conversation view under the cursor, or nil.
func (cl *ConversationList) SelectedView() *messaging.ConversationView {
	row, _ := cl.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(cl.convs) {
		return nil
	}
	c := cl.convs[idx]
	return &c
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
