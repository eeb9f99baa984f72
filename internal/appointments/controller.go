// Package appointments owns the appointment list: live subscription,
// normalization, the past-due reconciliation sweep, and the filter/sort/
// paginate view consumed by the list page.
package appointments

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caredesk/caredesk/internal/auth"
	"github.com/caredesk/caredesk/internal/backend"
	"github.com/caredesk/caredesk/internal/care"
)

// PageSize is the fixed number of appointments per page.
const PageSize = 8

// DefaultSweepInterval is how often the reconciliation sweep runs between
// snapshots.
const DefaultSweepInterval = 30 * time.Second

// Backend is the slice of the external service this controller needs.
type Backend interface {
	SubscribeAppointments(userID string, role care.Role) *backend.Stream[[]care.Appointment]
	BatchCompleteAppointments(ids []string) ([]care.Appointment, error)
	BookAppointment(a care.Appointment) (*care.Appointment, error)
	CancelAppointment(id, note string) error
	RescheduleAppointment(id, date, tod string) (*care.Appointment, error)
}

// Page is one rendered page of the filtered and sorted list.
type Page struct {
	Items     []care.Appointment
	Page      int
	PageCount int
	Total     int
}

// Controller maintains the live appointment list for one signed-in user.
type Controller struct {
	backend Backend
	id      auth.Identity
	log     *zap.Logger

	// Injectable for tests.
	now           func() time.Time
	loc           *time.Location
	sweepInterval time.Duration

	mu           sync.Mutex
	appts        []care.Appointment
	search       string
	statusFilter care.AppointmentStatus
	typeFilter   string
	page         int

	updates       chan struct{}
	notifications chan string

	stop   func()
	wg     sync.WaitGroup
	stream *backend.Stream[[]care.Appointment]
}

// New creates the controller. Start must be called before the view is live.
func New(b Backend, id auth.Identity, log *zap.Logger) *Controller {
	return &Controller{
		backend:       b,
		id:            id,
		log:           log,
		now:           time.Now,
		loc:           time.Local,
		sweepInterval: DefaultSweepInterval,
		page:          1,
		updates:       make(chan struct{}, 1),
		notifications: make(chan string, 4),
	}
}

// Start subscribes to the user's appointments and arms the periodic sweep.
func (c *Controller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.stop = cancel
	c.stream = c.backend.SubscribeAppointments(c.id.UserID, c.id.Role)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.stream.Cancel()
				return
			case snapshot, ok := <-c.stream.Updates():
				if !ok {
					return
				}
				c.ingest(snapshot)
				c.RunSweep()
				c.signal()
			case <-ticker.C:
				c.RunSweep()
			}
		}
	}()
}

// Stop cancels the subscription and the sweep timer.
func (c *Controller) Stop() {
	if c.stop != nil {
		c.stop()
	}
	if c.stream != nil {
		c.stream.Cancel()
	}
	c.wg.Wait()
}

// Updates signals whenever the visible list may have changed.
func (c *Controller) Updates() <-chan struct{} { return c.updates }

// Notifications carries one-shot user-visible messages (sweep results).
func (c *Controller) Notifications() <-chan string { return c.notifications }

// ingest replaces local state with a normalized copy of the snapshot.
func (c *Controller) ingest(snapshot []care.Appointment) {
	today := c.now().In(c.loc)
	normalized := make([]care.Appointment, len(snapshot))
	for i, a := range snapshot {
		normalized[i] = care.NormalizeAppointment(a, today)
	}
	c.mu.Lock()
	c.appts = normalized
	c.mu.Unlock()
}

// RunSweep finds approved appointments whose scheduled time has passed,
// requests their completion in one batch, merges the updated records back,
// and raises a notification naming the count. Exported so tests can drive
// it without waiting on the interval.
func (c *Controller) RunSweep() {
	now := c.now().In(c.loc)

	c.mu.Lock()
	var due []string
	for _, a := range c.appts {
		if a.Status != care.AppointmentApproved {
			continue
		}
		starts, err := a.StartsAt(c.loc)
		if err != nil {
			c.log.Warn("unparseable appointment schedule",
				zap.String("id", a.ID), zap.Error(err))
			continue
		}
		if starts.Before(now) {
			due = append(due, a.ID)
		}
	}
	c.mu.Unlock()

	if len(due) == 0 {
		return
	}
	updated, err := c.backend.BatchCompleteAppointments(due)
	if err != nil {
		c.log.Warn("batch complete failed", zap.Error(err))
		return
	}
	if len(updated) == 0 {
		return
	}

	c.mu.Lock()
	for _, u := range updated {
		for i := range c.appts {
			if c.appts[i].ID == u.ID {
				c.appts[i] = u
				break
			}
		}
	}
	c.mu.Unlock()

	c.notify(fmt.Sprintf("%d appointment(s) marked as completed", len(updated)))
	c.signal()
}

// SetSearch updates the substring filter and resets to the first page.
func (c *Controller) SetSearch(q string) {
	c.mu.Lock()
	c.search = strings.ToLower(strings.TrimSpace(q))
	c.page = 1
	c.mu.Unlock()
	c.signal()
}

// SetStatusFilter sets an exact-match status filter (empty = all).
func (c *Controller) SetStatusFilter(status care.AppointmentStatus) {
	c.mu.Lock()
	c.statusFilter = status
	c.page = 1
	c.mu.Unlock()
	c.signal()
}

// SetTypeFilter sets an exact-match type filter (empty = all).
func (c *Controller) SetTypeFilter(typ string) {
	c.mu.Lock()
	c.typeFilter = typ
	c.page = 1
	c.mu.Unlock()
	c.signal()
}

// SetPage selects a 1-indexed page; out-of-range values are clamped when
// the view is built.
func (c *Controller) SetPage(page int) {
	c.mu.Lock()
	c.page = page
	c.mu.Unlock()
	c.signal()
}

// View builds the current page of the filtered and sorted list.
func (c *Controller) View() Page {
	c.mu.Lock()
	defer c.mu.Unlock()

	filtered := filter(c.appts, c.search, c.statusFilter, c.typeFilter)
	sortAppointments(filtered, c.loc)

	total := len(filtered)
	pageCount := (total + PageSize - 1) / PageSize
	if pageCount == 0 {
		pageCount = 1
	}
	page := c.page
	if page < 1 {
		page = 1
	}
	if page > pageCount {
		page = pageCount
	}

	start := (page - 1) * PageSize
	end := min(start+PageSize, total)
	var items []care.Appointment
	if start < total {
		items = filtered[start:end]
	}
	return Page{Items: items, Page: page, PageCount: pageCount, Total: total}
}

// Types returns the distinct appointment types present, sorted, for the
// filter dropdown.
func (c *Controller) Types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool)
	var types []string
	for _, a := range c.appts {
		if a.Type != "" && !seen[a.Type] {
			seen[a.Type] = true
			types = append(types, a.Type)
		}
	}
	slices.Sort(types)
	return types
}

// Book schedules a new pending appointment through the backend.
func (c *Controller) Book(a care.Appointment) {
	a.PatientID = c.id.UserID
	if _, err := c.backend.BookAppointment(a); err != nil {
		c.log.Warn("book appointment failed", zap.Error(err))
	}
}

// Cancel cancels an appointment with an optional note.
func (c *Controller) Cancel(id, note string) {
	if err := c.backend.CancelAppointment(id, note); err != nil {
		c.log.Warn("cancel appointment failed", zap.String("id", id), zap.Error(err))
	}
}

// Reschedule cancels the appointment and books a new one at the given slot.
func (c *Controller) Reschedule(id, date, tod string) {
	if _, err := c.backend.RescheduleAppointment(id, date, tod); err != nil {
		c.log.Warn("reschedule failed", zap.String("id", id), zap.Error(err))
	}
}

func (c *Controller) signal() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

func (c *Controller) notify(msg string) {
	select {
	case c.notifications <- msg:
	default:
	}
}
