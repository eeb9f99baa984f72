package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// StatusBar displays the profile, signed-in user, and transient messages.
type StatusBar struct {
	*tview.TextView
	profile string
	user    string
	role    string
	flash   string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetProfile updates the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetUser updates the signed-in user display.
func (sb *StatusBar) SetUser(name, role string) {
	sb.user = name
	sb.role = role
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	clock := time.Now().Format("15:04")

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s (%s) | %s", sb.profile, sb.user, sb.role, clock)
	if sb.flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", sb.flash)
	}

	_, _ = fmt.Fprint(sb, line)
}
