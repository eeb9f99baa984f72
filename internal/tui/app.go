// Package tui is the terminal front end: an app shell with three pages
// (appointments, messages, patients) driven by the controllers' update
// channels.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/caredesk/caredesk/internal/appointments"
	"github.com/caredesk/caredesk/internal/auth"
	"github.com/caredesk/caredesk/internal/care"
	"github.com/caredesk/caredesk/internal/messaging"
	"github.com/caredesk/caredesk/internal/roster"
	"github.com/caredesk/caredesk/internal/tui/keys"
	"github.com/caredesk/caredesk/internal/tui/ui"
	"github.com/caredesk/caredesk/internal/tui/views"
)

const (
	pageAppointments = "appointments"
	pageMessages     = "messages"
	pageThread       = "thread"
	pagePatients     = "patients"
	pageModal        = "modal"
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	theme    *ui.Theme
	registry *keys.Registry
	flash    *ui.Flash

	identity auth.Identity
	appts    *appointments.Controller
	msgs     *messaging.Controller
	roster   *roster.Controller

	statusBar  *views.StatusBar
	apptList   *views.AppointmentList
	convList   *views.ConversationList
	thread     *views.MessageThread
	rosterView *views.RosterView
	prompt     *tview.InputField

	convFilter   messaging.Filter
	rosterSort   roster.SortKey
	statusCursor int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application. The roster controller is nil for
// patient users; the patients page is simply absent then.
func NewApp(id auth.Identity, ac *appointments.Controller, mc *messaging.Controller, rc *roster.Controller, profileName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:        tview.NewApplication(),
		pages:      tview.NewPages(),
		theme:      theme,
		registry:   keys.NewRegistry(),
		flash:      &ui.Flash{},
		identity:   id,
		appts:      ac,
		msgs:       mc,
		roster:     rc,
		statusBar:  views.NewStatusBar(),
		apptList:   views.NewAppointmentList(theme),
		convList:   views.NewConversationList(theme),
		thread:     views.NewMessageThread(theme, id.UserID),
		rosterView: views.NewRosterView(theme),
		convFilter: messaging.FilterAll,
		rosterSort: roster.SortName,
		ctx:        ctx,
		cancel:     cancel,
	}

	a.statusBar.SetProfile(profileName)
	a.statusBar.SetUser(id.DisplayName, string(id.Role))
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() { a.app.Stop() },
	})
	a.registry.AddGlobal("appointments", &keys.Action{
		Rune: '1', Key: tcell.KeyRune,
		Description: "1:appointments", Visible: true,
		Handler: func() { a.switchTo(pageAppointments, a.apptList) },
	})
	a.registry.AddGlobal("messages", &keys.Action{
		Rune: '2', Key: tcell.KeyRune,
		Description: "2:messages", Visible: true,
		Handler: func() { a.switchTo(pageMessages, a.convList) },
	})
	if a.roster != nil {
		a.registry.AddGlobal("patients", &keys.Action{
			Rune: '3', Key: tcell.KeyRune,
			Description: "3:patients", Visible: true,
			Handler: func() {
				go a.roster.Load()
				a.switchTo(pagePatients, a.rosterView)
			},
		})
	}
	a.registry.AddGlobal("search", &keys.Action{
		Rune: '/', Key: tcell.KeyRune,
		Description: "/:search", Visible: true,
		Handler: func() { a.showSearchPrompt() },
	})

	a.registry.AddView(pageAppointments, "next", &keys.Action{
		Rune: 'n', Key: tcell.KeyRune,
		Description: "n:next page", Visible: true,
		Handler: func() { a.appts.SetPage(a.apptList.Page().Page + 1) },
	})
	a.registry.AddView(pageAppointments, "prev", &keys.Action{
		Rune: 'p', Key: tcell.KeyRune,
		Description: "p:prev page", Visible: true,
		Handler: func() { a.appts.SetPage(a.apptList.Page().Page - 1) },
	})
	a.registry.AddView(pageAppointments, "cancel", &keys.Action{
		Rune: 'c', Key: tcell.KeyRune,
		Description: "c:cancel appt", Visible: true,
		Handler: func() { a.confirmCancelAppointment() },
	})
	a.registry.AddView(pageAppointments, "reschedule", &keys.Action{
		Rune: 'r', Key: tcell.KeyRune,
		Description: "r:reschedule", Visible: true,
		Handler: func() { a.showReschedulePrompt() },
	})
	a.registry.AddView(pageAppointments, "status", &keys.Action{
		Rune: 'f', Key: tcell.KeyRune,
		Description: "f:cycle status", Visible: true,
		Handler: func() { a.cycleStatusFilter() },
	})

	a.registry.AddView(pageMessages, "filter", &keys.Action{
		Rune: 'f', Key: tcell.KeyRune,
		Description: "f:all/unread/read", Visible: true,
		Handler: func() { a.cycleConversationFilter() },
	})
	a.registry.AddView(pageMessages, "unread", &keys.Action{
		Rune: 'u', Key: tcell.KeyRune,
		Description: "u:mark unread", Visible: true,
		Handler: func() {
			if id := a.convList.Selected(); id != "" {
				a.msgs.MarkUnread(id)
			}
		},
	})
	a.registry.AddView(pageMessages, "mute", &keys.Action{
		Rune: 'm', Key: tcell.KeyRune,
		Description: "m:mute/unmute", Visible: true,
		Handler: func() {
			if c := a.convList.SelectedView(); c != nil {
				a.msgs.Mute(c.ID, !c.Muted)
			}
		},
	})
	a.registry.AddView(pageMessages, "delete", &keys.Action{
		Rune: 'D', Key: tcell.KeyRune,
		Description: "D:delete conv", Visible: true,
		Handler: func() { a.confirmDeleteConversation() },
	})

	a.registry.AddView(pageThread, "older", &keys.Action{
		Rune: 'o', Key: tcell.KeyRune,
		Description: "o:older messages", Visible: true,
		Handler: func() { go a.msgs.LoadOlder() },
	})
	a.registry.AddView(pageThread, "attach", &keys.Action{
		Rune: 'a', Key: tcell.KeyRune,
		Description: "a:attach file", Visible: true,
		Handler: func() { a.showAttachPrompt() },
	})
	a.registry.AddView(pageThread, "reply", &keys.Action{
		Rune: 'r', Key: tcell.KeyRune,
		Description: "r:reply to last", Visible: true,
		Handler: func() { a.replyToLast() },
	})
	a.registry.AddView(pageThread, "clear", &keys.Action{
		Rune: 'x', Key: tcell.KeyRune,
		Description: "x:clear attach/reply", Visible: true,
		Handler: func() {
			a.msgs.ClearAttachment()
			a.msgs.ClearReply()
		},
	})
	a.registry.AddView(pageThread, "unsend", &keys.Action{
		Rune: 'U', Key: tcell.KeyRune,
		Description: "U:unsend last", Visible: true,
		Handler: func() { a.unsendLast() },
	})
	a.registry.AddView(pageThread, "info", &keys.Action{
		Rune: 'd', Key: tcell.KeyRune,
		Description: "d:details", Visible: true,
		Handler: func() { a.showCounterpartInfo() },
	})

	a.registry.AddView(pagePatients, "sort", &keys.Action{
		Rune: 's', Key: tcell.KeyRune,
		Description: "s:cycle sort", Visible: true,
		Handler: func() { a.cycleRosterSort() },
	})
	a.registry.AddView(pagePatients, "chat", &keys.Action{
		Key:         tcell.KeyEnter,
		Description: "Enter:message patient", Visible: true,
		Handler: func() {
			if e := a.rosterView.Selected(); e != nil {
				a.msgs.StartConversation(e.Profile.ID)
				a.switchTo(pageThread, a.thread)
			}
		},
	})
}

func (a *App) setupCallbacks() {
	a.convList.SetSelectedFunc(func(int, int) {
		if id := a.convList.Selected(); id != "" {
			a.msgs.Select(id)
			a.switchTo(pageThread, a.thread)
		}
	})
	a.thread.SetOnChange(func(text string) {
		a.msgs.SetComposeText(text)
	})
	a.thread.SetOnSend(func() {
		go func() {
			a.msgs.Send()
			a.redraw()
		}()
	})
	a.thread.SetOnTop(func() {
		go func() {
			a.msgs.LoadOlder()
			a.redraw()
		}()
	})
}

func (a *App) setupLayout() {
	a.prompt = tview.NewInputField().SetFieldWidth(0)
	a.prompt.SetBorder(true)
	a.prompt.SetBorderColor(a.theme.BorderFocusColor)

	a.pages.AddPage(pageAppointments, a.apptList, true, true)
	a.pages.AddPage(pageMessages, a.convList, true, false)
	a.pages.AddPage(pageThread, a.thread, true, false)
	a.pages.AddPage(pagePatients, a.rosterView, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape {
			switch currentPage {
			case pageThread:
				a.msgs.Deselect()
				a.switchTo(pageMessages, a.convList)
				return nil
			case pageModal:
				a.closeModal()
				return nil
			}
		}

		// Let text input widgets handle all keys normally.
		focused := a.app.GetFocus()
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		// 'i' focuses the composer (only when not already in an input field).
		if currentPage == pageThread && event.Key() == tcell.KeyRune && event.Rune() == 'i' {
			a.app.SetFocus(a.thread.Composer())
			return nil
		}

		if a.registry.HandleEvent(currentPage, event) {
			return nil
		}
		return event
	})
}

func (a *App) switchTo(page string, focus tview.Primitive) {
	a.pages.SwitchToPage(page)
	a.app.SetFocus(focus)
	a.renderCurrent()
}

// Run starts the controllers, the refresh loop, and the terminal UI.
func (a *App) Run() error {
	a.appts.Start(a.ctx)
	a.msgs.Start(a.ctx)
	if a.roster != nil {
		go a.roster.Load()
	}
	go a.refreshLoop()

	err := a.app.Run()
	a.Stop()
	return err
}

// Stop tears everything down. Presence offline runs inside the messaging
// controller's Stop.
func (a *App) Stop() {
	a.cancel()
	a.msgs.Stop()
	a.appts.Stop()
	a.app.Stop()
}

// refreshLoop redraws whenever a controller reports a change and keeps the
// status bar clock and flash current.
func (a *App) refreshLoop() {
	var rosterUpdates <-chan struct{} // nil for patients, blocks forever
	if a.roster != nil {
		rosterUpdates = a.roster.Updates()
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.appts.Updates():
			a.redraw()
		case <-a.msgs.Updates():
			a.redraw()
		case <-rosterUpdates:
			a.redraw()
		case msg := <-a.appts.Notifications():
			a.flash.Set(msg, 5*time.Second)
			a.redraw()
		case <-ticker.C:
			a.redraw()
		}
	}
}

func (a *App) redraw() {
	a.app.QueueUpdateDraw(a.renderCurrent)
}

func (a *App) renderCurrent() {
	currentPage, _ := a.pages.GetFrontPage()
	switch currentPage {
	case pageAppointments:
		a.apptList.Update(a.appts.View())
	case pageMessages:
		a.convList.Update(a.msgs.Conversations())
	case pageThread:
		if sel := a.msgs.Selection(); sel != nil {
			a.thread.Update(sel, a.msgs.Compose())
		}
	case pagePatients:
		if a.roster != nil {
			a.rosterView.Update(a.roster.View(), a.rosterSort)
		}
	}
	a.statusBar.SetFlash(a.flash.Get())
}

func (a *App) showSearchPrompt() {
	currentPage, _ := a.pages.GetFrontPage()
	a.prompt.SetLabel(" search: ").SetText("")
	a.prompt.SetDoneFunc(func(key tcell.Key) {
		query := a.prompt.GetText()
		if key == tcell.KeyEnter {
			switch currentPage {
			case pageAppointments:
				a.appts.SetSearch(query)
			case pageMessages:
				a.msgs.SetSearch(query)
			case pagePatients:
				if a.roster != nil {
					a.roster.SetSearch(query)
				}
			}
		}
		a.closeModal()
	})
	a.openModal(a.prompt, 3)
}

func (a *App) showAttachPrompt() {
	a.prompt.SetLabel(" file path: ").SetText("")
	a.prompt.SetDoneFunc(func(key tcell.Key) {
		path := a.prompt.GetText()
		a.closeModal()
		if key != tcell.KeyEnter || path == "" {
			return
		}
		payload, err := os.ReadFile(path)
		if err != nil {
			a.flash.Set("cannot read "+path, 5*time.Second)
			return
		}
		a.msgs.AttachFile(filepath.Base(path), payload)
	})
	a.openModal(a.prompt, 3)
}

func (a *App) showReschedulePrompt() {
	sel := a.apptList.Selected()
	if sel == nil || sel.Status == care.AppointmentCompleted || sel.Status == care.AppointmentCancelled {
		return
	}
	id := sel.ID
	a.prompt.SetLabel(" new date and time (2006-01-02 15:04): ").SetText(sel.Date + " " + sel.Time)
	a.prompt.SetDoneFunc(func(key tcell.Key) {
		text := a.prompt.GetText()
		a.closeModal()
		if key != tcell.KeyEnter {
			return
		}
		date, tod, ok := strings.Cut(text, " ")
		if !ok {
			a.flash.Set("expected: 2006-01-02 15:04", 5*time.Second)
			return
		}
		go a.appts.Reschedule(id, date, tod)
	})
	a.openModal(a.prompt, 3)
}

func (a *App) confirmCancelAppointment() {
	sel := a.apptList.Selected()
	if sel == nil || sel.Status == care.AppointmentCompleted || sel.Status == care.AppointmentCancelled {
		return
	}
	id := sel.ID
	modal := views.NewConfirmModal(a.theme,
		fmt.Sprintf("Cancel appointment with %s on %s?", sel.DoctorName, sel.Date),
		func(confirmed bool) {
			a.closeModal()
			if confirmed {
				go a.appts.Cancel(id, "Cancelled by "+a.identity.DisplayName)
			}
		})
	a.openModal(modal, 0)
}

func (a *App) confirmDeleteConversation() {
	c := a.convList.SelectedView()
	if c == nil {
		return
	}
	id := c.ID
	modal := views.NewConfirmModal(a.theme,
		fmt.Sprintf("Delete conversation with %s?", c.Counterpart.DisplayName),
		func(confirmed bool) {
			a.closeModal()
			if confirmed {
				go a.msgs.DeleteConversation(id)
			}
		})
	a.openModal(modal, 0)
}

func (a *App) showCounterpartInfo() {
	sel := a.msgs.Selection()
	if sel == nil {
		return
	}
	modal := views.NewProfileModal(a.theme, sel.Counterpart, a.closeModal)
	a.openModal(modal, 0)
}

func (a *App) openModal(p tview.Primitive, height int) {
	if height > 0 {
		wrapper := tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false)
		p = wrapper
	}
	a.pages.AddPage(pageModal, p, true, true)
	a.app.SetFocus(p)
}

func (a *App) closeModal() {
	a.pages.RemovePage(pageModal)
}

func (a *App) cycleStatusFilter() {
	order := []care.AppointmentStatus{
		"", care.AppointmentApproved, care.AppointmentPending,
		care.AppointmentCompleted, care.AppointmentCancelled,
	}
	a.statusCursor = (a.statusCursor + 1) % len(order)
	a.appts.SetStatusFilter(order[a.statusCursor])
}

func (a *App) cycleConversationFilter() {
	switch a.convFilter {
	case messaging.FilterAll:
		a.convFilter = messaging.FilterUnread
	case messaging.FilterUnread:
		a.convFilter = messaging.FilterRead
	default:
		a.convFilter = messaging.FilterAll
	}
	a.msgs.SetFilter(a.convFilter)
}

func (a *App) cycleRosterSort() {
	switch a.rosterSort {
	case roster.SortName:
		a.rosterSort = roster.SortRecent
	case roster.SortRecent:
		a.rosterSort = roster.SortAppointments
	default:
		a.rosterSort = roster.SortName
	}
	a.roster.SetSort(a.rosterSort)
}

func (a *App) replyToLast() {
	sel := a.msgs.Selection()
	if sel == nil || len(sel.Messages) == 0 {
		return
	}
	a.msgs.SetReply(sel.Messages[len(sel.Messages)-1])
}

func (a *App) unsendLast() {
	sel := a.msgs.Selection()
	if sel == nil {
		return
	}
	for i := len(sel.Messages) - 1; i >= 0; i-- {
		if sel.Messages[i].SenderID == a.identity.UserID {
			a.msgs.Unsend(sel.Messages[i])
			return
		}
	}
}
