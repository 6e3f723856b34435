package app

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by stores when no record matches.
	ErrNotFound = errors.New("not found")
	// ErrInvalidType is returned when an entry type is outside the closed set.
	ErrInvalidType = errors.New("invalid entry type")
	// ErrInvalidDate is returned when a date is not a YYYY-MM-DD string.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidCredentials is returned when a login attempt does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DateLayout is the ISO-8601 calendar date layout used everywhere an entry
// date is shown, submitted or grouped.
const DateLayout = "2006-01-02"

// EntryType classifies an entry. Only the three declared values are valid.
type EntryType string

// The closed set of entry types.
const (
	Work             EntryType = "work"
	Learning         EntryType = "learning"
	InterestingThing EntryType = "interesting-thing"
)

// EntryTypes lists the valid entry types in display order.
var EntryTypes = []EntryType{Work, Learning, InterestingThing}

// ParseEntryType converts s into an EntryType.
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// Valid reports whether t is one of the closed set.
func (t EntryType) Valid() bool {
	switch t {
	case Work, Learning, InterestingThing:
		return true
	}
	return false
}

// Label is the text shown next to the type's radio button.
func (t EntryType) Label() string {
	switch t {
	case Work:
		return "Work"
	case Learning:
		return "Learning"
	case InterestingThing:
		return "Interesting thing"
	}
	return string(t)
}

// Title is the heading of the type's section in the weekly listing.
func (t EntryType) Title() string {
	switch t {
	case Work:
		return "Work"
	case Learning:
		return "Learnings"
	case InterestingThing:
		return "Interesting things"
	}
	return string(t)
}

// Entry represents a single journal record.
type Entry struct {
	ID   int64
	Date time.Time
	Type EntryType
	Text string
}

// Day returns the entry date as YYYY-MM-DD, ignoring the time of day.
func (e Entry) Day() string {
	return FormatDate(e.Date)
}

// ParseDate parses a YYYY-MM-DD string into UTC midnight of that day.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// FormatDate renders the UTC calendar date of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// EntryStore represents the actions that can be taken about entries.
type EntryStore interface {
	Create(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, id int64) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Update(ctx context.Context, e Entry) (Entry, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// Authenticator checks a login attempt against the admin credentials.
type Authenticator interface {
	Authenticate(email, password string) error
}
