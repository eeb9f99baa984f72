package appointments

import (
	"slices"
	"strings"
	"time"

	"github.com/caredesk/caredesk/internal/care"
)

// filter applies the search, status, and type predicates. The predicates
// are independent, so application order never changes the result set.
func filter(appts []care.Appointment, search string, status care.AppointmentStatus, typ string) []care.Appointment {
	out := make([]care.Appointment, 0, len(appts))
	for _, a := range appts {
		if status != "" && a.Status != status {
			continue
		}
		if typ != "" && a.Type != typ {
			continue
		}
		if search != "" && !matchesSearch(a, search) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matchesSearch(a care.Appointment, q string) bool {
	return strings.Contains(strings.ToLower(a.DoctorName), q) ||
		strings.Contains(strings.ToLower(a.Specialty), q) ||
		strings.Contains(strings.ToLower(a.Notes), q)
}

// sortAppointments applies the list ordering: approved ("Upcoming")
// appointments come first, earliest first among themselves; completed ones
// sort latest-first among themselves; everything else falls back to
// latest-first. The sort is stable.
func sortAppointments(appts []care.Appointment, loc *time.Location) {
	slices.SortStableFunc(appts, func(a, b care.Appointment) int {
		aUp := a.Status == care.AppointmentApproved
		bUp := b.Status == care.AppointmentApproved
		at := startOrZero(a, loc)
		bt := startOrZero(b, loc)

		switch {
		case aUp && bUp:
			return at.Compare(bt)
		case aUp:
			return -1
		case bUp:
			return 1
		default:
			// Completed pairs and mixed remainders both sort latest-first.
			return bt.Compare(at)
		}
	})
}

func startOrZero(a care.Appointment, loc *time.Location) time.Time {
	t, err := a.StartsAt(loc)
	if err != nil {
		return time.Time{}
	}
	return t
}
