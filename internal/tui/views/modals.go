package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/caredesk/caredesk/internal/care"
	"github.com/caredesk/caredesk/internal/tui/ui"
)

// NewConfirmModal builds a yes/no modal. The callback receives true when
// the user confirms.
func NewConfirmModal(theme *ui.Theme, text string, done func(confirmed bool)) *tview.Modal {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"Yes", "No"}).
		SetDoneFunc(func(_ int, label string) {
			done(label == "Yes")
		})
	modal.SetBackgroundColor(theme.BgColor)
	modal.SetTextColor(theme.FgColor)
	modal.SetBorderColor(theme.BorderFocusColor)
	return modal
}

// NewProfileModal builds a read-only modal showing a counterpart's profile.
func NewProfileModal(theme *ui.Theme, p care.Profile, done func()) *tview.Modal {
	text := fmt.Sprintf("%s\n%s\n\n%s\n%s\n\n%s",
		p.DisplayName, p.Specialty, p.Email, p.Phone, p.Bio)
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"Close"}).
		SetDoneFunc(func(int, string) { done() })
	modal.SetBackgroundColor(theme.BgColor)
	modal.SetTextColor(theme.FgColor)
	modal.SetBorderColor(theme.BorderFocusColor)
	return modal
}
