// Package roster owns the doctor's patient roster: connected-patient
// resolution, concurrent profile and interaction-stat fetches, and the
// search/sort view.
package roster

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/caredesk/caredesk/internal/auth"
	"github.com/caredesk/caredesk/internal/care"
)

// SortKey selects the roster ordering.
type SortKey string

const (
	SortName         SortKey = "name"
	SortRecent       SortKey = "recent"
	SortAppointments SortKey = "appointments"
)

// Backend is the slice of the external service this controller needs.
type Backend interface {
	ResolveConnectedPatients(doctorID string) ([]string, error)
	FetchUser(id string) (*care.Profile, error)
	FetchInteractionStats(doctorID, patientID string) (care.InteractionStats, error)
}

// Entry is one roster row.
type Entry struct {
	Profile care.Profile
	Stats   care.InteractionStats
}

// Controller maintains the patient roster for one signed-in doctor.
type Controller struct {
	backend Backend
	id      auth.Identity
	log     *zap.Logger

	mu      sync.Mutex
	entries []Entry
	search  string
	sort    SortKey

	updates chan struct{}
}

// New creates the controller. Load must be called to populate it.
func New(b Backend, id auth.Identity, log *zap.Logger) *Controller {
	return &Controller{
		backend: b,
		id:      id,
		log:     log,
		sort:    SortName,
		updates: make(chan struct{}, 1),
	}
}

// Updates signals whenever the visible roster may have changed.
func (c *Controller) Updates() <-chan struct{} { return c.updates }

// Load resolves the connected-patient list and fetches each patient's
// profile and interaction stats concurrently. Ids without a resolvable
// profile are dropped; a failed stats fetch keeps the row with zero stats.
func (c *Controller) Load() {
	ids, err := c.backend.ResolveConnectedPatients(c.id.UserID)
	if err != nil {
		c.log.Warn("resolve connected patients failed", zap.Error(err))
		c.mu.Lock()
		c.entries = nil
		c.mu.Unlock()
		c.signal()
		return
	}

	results := make([]*Entry, len(ids))
	var wg sync.WaitGroup
	for i, patientID := range ids {
		i, patientID := i, patientID
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.backend.FetchUser(patientID)
			if err != nil {
				c.log.Warn("fetch patient failed",
					zap.String("patient", patientID), zap.Error(err))
				return
			}
			if p == nil {
				return
			}
			entry := &Entry{Profile: *p}
			stats, err := c.backend.FetchInteractionStats(c.id.UserID, patientID)
			if err != nil {
				c.log.Warn("fetch interaction stats failed",
					zap.String("patient", patientID), zap.Error(err))
			} else {
				entry.Stats = stats
			}
			results[i] = entry
		}()
	}
	wg.Wait()

	entries := make([]Entry, 0, len(ids))
	for _, e := range results {
		if e != nil {
			entries = append(entries, *e)
		}
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	c.signal()
}

// SetSearch updates the substring filter over name, email, and phone.
func (c *Controller) SetSearch(q string) {
	c.mu.Lock()
	c.search = strings.ToLower(strings.TrimSpace(q))
	c.mu.Unlock()
	c.signal()
}

// SetSort switches the ordering.
func (c *Controller) SetSort(key SortKey) {
	c.mu.Lock()
	c.sort = key
	c.mu.Unlock()
	c.signal()
}

// View builds the filtered and sorted roster.
func (c *Controller) View() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if c.search != "" && !matches(e.Profile, c.search) {
			continue
		}
		out = append(out, e)
	}

	switch c.sort {
	case SortRecent:
		// Most recent interaction first; missing sorts as earliest.
		slices.SortStableFunc(out, func(a, b Entry) int {
			return b.Stats.LastInteraction.Compare(a.Stats.LastInteraction)
		})
	case SortAppointments:
		slices.SortStableFunc(out, func(a, b Entry) int {
			return cmp.Compare(b.Stats.Appointments, a.Stats.Appointments)
		})
	default:
		slices.SortStableFunc(out, func(a, b Entry) int {
			return strings.Compare(a.Profile.DisplayName, b.Profile.DisplayName)
		})
	}
	return out
}

func matches(p care.Profile, q string) bool {
	return strings.Contains(strings.ToLower(p.DisplayName), q) ||
		strings.Contains(strings.ToLower(p.Email), q) ||
		strings.Contains(strings.ToLower(p.Phone), q)
}

func (c *Controller) signal() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
