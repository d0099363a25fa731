// Package visit owns the visitor lifecycle: one record per physical visit,
// created at check-in and mutated exactly once, at check-out. Records are
// never deleted; they are the audit trail.
package visit

import (
	"errors"
	"time"

	"visitordesk/internal/host"
)

// Visit statuses. A visit starts checked-in and ends checked-out; there
// are no further transitions.
const (
	StatusCheckedIn  = "checked-in"
	StatusCheckedOut = "checked-out"
)

var (
	// ErrMissingField reports an empty required check-in field.
	ErrMissingField = errors.New("missing required field")
	// ErrNotFound reports an unknown badge number.
	ErrNotFound = errors.New("visitor not found")
	// ErrAlreadyCheckedOut rejects a second check-out for the same badge.
	ErrAlreadyCheckedOut = errors.New("already checked out")
	// ErrDuplicateBadge reports a badge number collision at persistence time.
	ErrDuplicateBadge = errors.New("duplicate badge number")
)

// Visit is one check-in/check-out cycle. The badge number is globally
// unique and immutable after creation.
type Visit struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email"`
	Company      string     `json:"company"`
	Purpose      string     `json:"purpose"`
	HostID       string     `json:"hostId"`
	PhotoPath    string     `json:"photoPath"`
	IDProof      string     `json:"idProof"`
	CheckInTime  time.Time  `json:"checkInTime"`
	CheckOutTime *time.Time `json:"checkOutTime"`
	Status       string     `json:"status"`
	QRCode       string     `json:"qrCode"`
	BadgeNumber  string     `json:"badgeNumber"`
}

// WithHost is a visit with its host reference resolved for read access.
// Host is nil when the reference dangles (for example a host created
// outside the directory, or bad kiosk input).
type WithHost struct {
	Visit
	Host *host.Host `json:"host,omitempty"`
}

// ListFilter narrows List results. Status filters exactly; Day, when set,
// keeps visits whose check-in falls within that UTC calendar day.
type ListFilter struct {
	Status string
	Day    *time.Time
}

// Stats are the dashboard aggregates for the current UTC day.
type Stats struct {
	TotalToday int `json:"totalToday"`
	CheckedIn  int `json:"checkedIn"`
	CheckedOut int `json:"checkedOut"`
	TotalHosts int `json:"totalHosts"`
}
