package visit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"visitordesk/internal/badge"
	"visitordesk/internal/photo"
	"visitordesk/internal/queue"
)

// maxBadgeAttempts bounds the regenerate-and-retry loop on badge collisions.
const maxBadgeAttempts = 5

// NotifyCheckin is the queue message type for visitor-arrival jobs.
const NotifyCheckin = "visitor_checkin"

// Repository persists visit records.
type Repository interface {
	Insert(ctx context.Context, v Visit) (Visit, error)
	GetByID(ctx context.Context, id string) (*Visit, error)
	GetByBadge(ctx context.Context, badgeNumber string) (*WithHost, error)
	// Checkout conditionally transitions a checked-in visit and returns the
	// updated record, or nil when no checked-in visit matched the badge.
	Checkout(ctx context.Context, badgeNumber string, at time.Time) (*Visit, error)
	List(ctx context.Context, f ListFilter) ([]WithHost, error)
	CountsForDay(ctx context.Context, dayStart time.Time) (total, checkedIn, checkedOut int, err error)
}

// HostCounter is the slice of the host directory the service needs.
type HostCounter interface {
	CountActive(ctx context.Context) (int, error)
}

// Publisher enqueues notification jobs.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Service is the lifecycle controller enforcing the checked-in →
// checked-out state machine.
type Service struct {
	repo   Repository
	photos photo.Store
	hosts  HostCounter
	notify Publisher
	now    func() time.Time
}

// NewService creates the lifecycle controller. notify may be nil, in which
// case check-ins skip notification dispatch entirely.
func NewService(repo Repository, photos photo.Store, hosts HostCounter, notify Publisher) *Service {
	return &Service{
		repo:   repo,
		photos: photos,
		hosts:  hosts,
		notify: notify,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CheckInRequest carries the kiosk fields for a new visit. Photo and
// IDProof are base64 images; Company defaults to "N/A".
type CheckInRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Purpose string `json:"purpose"`
	HostID  string `json:"hostId"`
	Photo   string `json:"photo"`
	IDProof string `json:"idProof"`
}

func (r CheckInRequest) validate() error {
	for _, f := range []struct{ name, val string }{
		{"name", r.Name},
		{"phone", r.Phone},
		{"email", r.Email},
		{"purpose", r.Purpose},
		{"hostId", r.HostID},
		{"photo", r.Photo},
		{"idProof", r.IDProof},
	} {
		if f.val == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	return nil
}

// CheckIn registers a visit: stores the photo, issues a unique badge,
// encodes the QR payload, persists the record and enqueues a best-effort
// host notification. The host reference is not validated here; a dangling
// reference simply yields no notification.
func (s *Service) CheckIn(ctx context.Context, req CheckInRequest) (Visit, string, error) {
	if err := req.validate(); err != nil {
		return Visit{}, "", err
	}

	photoRef, err := s.photos.Save(req.Photo, "visitors")
	if err != nil {
		return Visit{}, "", err
	}

	company := req.Company
	if company == "" {
		company = "N/A"
	}
	now := s.now()

	var saved Visit
	for attempt := 0; ; attempt++ {
		v := Visit{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Phone:       req.Phone,
			Email:       req.Email,
			Company:     company,
			Purpose:     req.Purpose,
			HostID:      req.HostID,
			PhotoPath:   photoRef,
			IDProof:     req.IDProof,
			CheckInTime: now,
			Status:      StatusCheckedIn,
			BadgeNumber: badge.Generate(),
		}
		v.QRCode, err = badge.EncodeQR(v.BadgeNumber, v.Name, v.CheckInTime)
		if err != nil {
			return Visit{}, "", err
		}

		saved, err = s.repo.Insert(ctx, v)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateBadge) && attempt < maxBadgeAttempts-1 {
			continue
		}
		return Visit{}, "", err
	}

	if s.notify != nil {
		if err := s.notify.Publish(ctx, queue.Message{Type: NotifyCheckin, Body: []byte(saved.ID)}); err != nil {
			log.Printf("notification enqueue failed for visit %s: %v", saved.ID, err)
		}
	}

	return saved, fmt.Sprintf("Check-in successful! Badge: %s", saved.BadgeNumber), nil
}

// CheckOut transitions a visit to checked-out and returns the record plus
// the visit duration in whole minutes. The transition is a conditional
// update, so concurrent check-outs resolve deterministically: the loser
// observes checked-out and gets ErrAlreadyCheckedOut.
func (s *Service) CheckOut(ctx context.Context, badgeNumber string) (Visit, int, error) {
	updated, err := s.repo.Checkout(ctx, badgeNumber, s.now())
	if err != nil {
		return Visit{}, 0, err
	}
	if updated == nil {
		existing, err := s.repo.GetByBadge(ctx, badgeNumber)
		if err != nil {
			return Visit{}, 0, err
		}
		if existing == nil {
			return Visit{}, 0, ErrNotFound
		}
		return Visit{}, 0, ErrAlreadyCheckedOut
	}

	duration := int(math.Round(updated.CheckOutTime.Sub(updated.CheckInTime).Minutes()))
	return *updated, duration, nil
}

// Get returns a single visit by badge number with its host resolved.
func (s *Service) Get(ctx context.Context, badgeNumber string) (WithHost, error) {
	v, err := s.repo.GetByBadge(ctx, badgeNumber)
	if err != nil {
		return WithHost{}, err
	}
	if v == nil {
		return WithHost{}, ErrNotFound
	}
	return *v, nil
}

// List returns visits, most recent check-in first, with hosts resolved.
func (s *Service) List(ctx context.Context, f ListFilter) ([]WithHost, error) {
	if f.Day != nil {
		day := f.Day.UTC().Truncate(24 * time.Hour)
		f.Day = &day
	}
	return s.repo.List(ctx, f)
}

// Stats aggregates today's traffic (UTC day) and the active host count.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	dayStart := s.now().Truncate(24 * time.Hour)
	total, in, out, err := s.repo.CountsForDay(ctx, dayStart)
	if err != nil {
		return Stats{}, err
	}
	hosts, err := s.hosts.CountActive(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalToday: total, CheckedIn: in, CheckedOut: out, TotalHosts: hosts}, nil
}
