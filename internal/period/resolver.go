// Package period maps fixture timestamps onto recurring match-week windows.
package period

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// Length is the fixed length of one period cycle
	Length = 7 * 24 * time.Hour
	// WindowDays is how many calendar days of each cycle belong to the window
	WindowDays = 5

	day = 24 * time.Hour
)

// DefaultEpoch is the season start used when no anchor is configured
var DefaultEpoch = time.Date(2025, time.August, 15, 0, 0, 0, 0, time.UTC)

// Window is a resolved period for one category
type Window struct {
	Category string
	Sequence int
	Start    time.Time
	End      time.Time
}

// Contains reports whether t falls inside the window, inclusive on both ends
func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.Start) && !t.After(w.End)
}

// Closed reports whether the window has ended as of now
func (w Window) Closed(now time.Time) bool {
	return now.UTC().After(w.End)
}

// Resolver computes period windows from fixed per-category anchors
type Resolver struct {
	defaultAnchor time.Time
	anchors       map[string]time.Time
	weekday       time.Weekday
	logger        *logrus.Logger
}

// NewResolver creates a resolver whose anchor is epoch advanced to the next boundary weekday
func NewResolver(epoch time.Time, boundary time.Weekday, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Resolver{
		defaultAnchor: Anchor(epoch, boundary),
		anchors:       make(map[string]time.Time),
		weekday:       boundary,
		logger:        logger,
	}
}

// WithCategoryAnchor overrides the anchor for one category
func (r *Resolver) WithCategoryAnchor(category string, epoch time.Time) *Resolver {
	r.anchors[category] = Anchor(epoch, r.weekday)
	return r
}

// AnchorFor returns the effective anchor for a category
func (r *Resolver) AnchorFor(category string) time.Time {
	if a, ok := r.anchors[category]; ok {
		return a
	}
	return r.defaultAnchor
}

// Resolve maps a scheduled time to its period window.
// Times before the anchor are clamped into period 1.
func (r *Resolver) Resolve(category string, scheduled time.Time) Window {
	anchor := r.AnchorFor(category)
	elapsedDays := floorDiv(scheduled.UTC().Sub(anchor).Milliseconds(), day.Milliseconds())

	if elapsedDays < 0 {
		r.logger.WithFields(logrus.Fields{
			"category":       category,
			"scheduled_time": scheduled.UTC().Format(time.RFC3339),
			"anchor":         anchor.Format(time.RFC3339),
		}).Warn("fixture scheduled before season anchor, clamping to period 1")
		elapsedDays = 0
	}

	periodsElapsed := elapsedDays / 7
	start := anchor.AddDate(0, 0, int(periodsElapsed)*7)
	end := start.AddDate(0, 0, WindowDays).Add(-time.Millisecond)

	return Window{
		Category: category,
		Sequence: int(periodsElapsed) + 1,
		Start:    start,
		End:      end,
	}
}

// Anchor truncates epoch to a UTC date and advances it to the next boundary weekday
func Anchor(epoch time.Time, boundary time.Weekday) time.Time {
	e := epoch.UTC()
	anchor := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	shift := (int(boundary) - int(anchor.Weekday()) + 7) % 7
	return anchor.AddDate(0, 0, shift)
}

// ParseWeekday parses an English weekday name such as "friday" or "Fri"
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid weekday %q", s)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
