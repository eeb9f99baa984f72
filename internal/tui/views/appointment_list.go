package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/caredesk/caredesk/internal/appointments"
	"github.com/caredesk/caredesk/internal/care"
	"github.com/caredesk/caredesk/internal/tui/ui"
)

// statusLabel maps a status to its user-facing group name. Approved
// appointments are shown as "Upcoming".
func statusLabel(s care.AppointmentStatus) string {
	switch s {
	case care.AppointmentApproved:
		return "Upcoming"
	case care.AppointmentPending:
		return "Pending"
	case care.AppointmentCompleted:
		return "Completed"
	case care.AppointmentCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// AppointmentList is the appointment page's table.
type AppointmentList struct {
	*tview.Table
	theme *ui.Theme
	page  appointments.Page
}

// NewAppointmentList creates the appointment table.
func NewAppointmentList(theme *ui.Theme) *AppointmentList {
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
	table.SetTitle(" Appointments ")
	table.SetTitleColor(theme.TitleColor)

	return &AppointmentList{Table: table, theme: theme}
}

// Update refreshes the table with a new page.
func (al *AppointmentList) Update(page appointments.Page) {
	al.page = page
	al.render()
}

func (al *AppointmentList) render() {
	al.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" STATUS", 0},
		{" DOCTOR", 1},
		{" SPECIALTY", 1},
		{" DATE", 0},
		{" TIME", 0},
		{" TYPE", 0},
		{" NOTES", 2},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(al.theme.TableHeaderFg).
			SetBackgroundColor(al.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		al.SetCell(0, col, cell)
	}

	for i, a := range al.page.Items {
		row := i + 1
		statusColor := al.theme.FgColor
		switch a.Status {
		case care.AppointmentApproved:
			statusColor = al.theme.OnlineColor
		case care.AppointmentCancelled:
			statusColor = al.theme.MutedColor
		}
		notes := a.Notes
		if a.Status == care.AppointmentCancelled && a.CancelNote != "" {
			notes = a.CancelNote
		}

		al.SetCell(row, 0, tview.NewTableCell(" "+statusLabel(a.Status)).SetTextColor(statusColor))
		al.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(a.DoctorName))).SetExpansion(1).SetTextColor(al.theme.FgColor))
		al.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(a.Specialty)).SetExpansion(1).SetTextColor(al.theme.FgColor))
		al.SetCell(row, 3, tview.NewTableCell(a.Date).SetTextColor(al.theme.FgColor))
		al.SetCell(row, 4, tview.NewTableCell(a.Time).SetTextColor(al.theme.FgColor))
		al.SetCell(row, 5, tview.NewTableCell(a.Type).SetTextColor(al.theme.FgColor))
		al.SetCell(row, 6, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(notes))).SetExpansion(2).SetTextColor(al.theme.MutedColor))
	}

	al.SetTitle(fmt.Sprintf(" Appointments (%d) page %d/%d ",
		al.page.Total, al.page.Page, al.page.PageCount))
}

// Selected returns the appointment under the cursor, or nil.
func (al *AppointmentList) Selected() *care.Appointment {
	row, _ := al.GetSelection()
	idx := row - 1 // account for header
	if idx < 0 || idx >= len(al.page.Items) {
		return nil
	}
	a := al.page.Items[idx]
	return &a
}

// Page returns the currently rendered page.
func (al *AppointmentList) Page() appointments.Page {
	return al.page
}
