package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/caredesk/caredesk/internal/roster"
	"github.com/caredesk/caredesk/internal/tui/ui"
)

// RosterView is the doctor's patient roster table.
type RosterView struct {
	*tview.Table
	theme   *ui.Theme
	entries []roster.Entry
	sortKey roster.SortKey
}

// NewRosterView creates the roster table.
func NewRosterView(theme *ui.Theme) *RosterView {
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
	table.SetTitle(" Patients ")
	table.SetTitleColor(theme.TitleColor)

	return &RosterView{Table: table, theme: theme, sortKey: roster.SortName}
}

// Update refreshes the table with a new roster.
func (rv *RosterView) Update(entries []roster.Entry, sortKey roster.SortKey) {
	rv.entries = entries
	rv.sortKey = sortKey
	rv.render()
}

func (rv *RosterView) render() {
	rv.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" EMAIL", 1},
		{" PHONE", 0},
		{" APPTS", 0},
		{" MSGS", 0},
		{" RECORDS", 0},
		{" LAST SEEN", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(rv.theme.TableHeaderFg).
			SetBackgroundColor(rv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		rv.SetCell(0, col, cell)
	}

	for i, e := range rv.entries {
		row := i + 1
		rv.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(e.Profile.DisplayName))).SetExpansion(1).SetTextColor(rv.theme.FgColor))
		rv.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(e.Profile.Email)).SetExpansion(1).SetTextColor(rv.theme.FgColor))
		rv.SetCell(row, 2, tview.NewTableCell(e.Profile.Phone).SetTextColor(rv.theme.FgColor))
		rv.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%d", e.Stats.Appointments)).SetTextColor(rv.theme.FgColor).SetAlign(tview.AlignRight))
		rv.SetCell(row, 4, tview.NewTableCell(fmt.Sprintf("%d", e.Stats.Messages)).SetTextColor(rv.theme.FgColor).SetAlign(tview.AlignRight))
		rv.SetCell(row, 5, tview.NewTableCell(fmt.Sprintf("%d", e.Stats.Records)).SetTextColor(rv.theme.FgColor).SetAlign(tview.AlignRight))
		rv.SetCell(row, 6, tview.NewTableCell(formatTimestamp(e.Stats.LastInteraction)).SetTextColor(rv.theme.MutedColor).SetAlign(tview.AlignRight))
	}

	rv.SetTitle(fmt.Sprintf(" Patients (%d) sort: %s ", len(rv.entries), rv.sortKey))
}

// Selected returns the roster entry under the cursor, or nil.
func (rv *RosterView) Selected() *roster.Entry {
	row, _ := rv.GetSelection()
	idx := row - 1 // account for header
	if idx < 0 || idx >= len(rv.entries) {
		return nil
	}
	e := rv.entries[idx]
	return &e
}
