// Package host maintains the directory of employees visitors come to see.
// Hosts are never physically deleted: historical visit records keep
// referencing them, so removal is a soft transition to inactive.
package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"visitordesk/internal/photo"
)

// Host statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var (
	// ErrMissingField reports a required field that was empty at creation.
	ErrMissingField = errors.New("missing required field")
	// ErrNotFound reports an unknown host id.
	ErrNotFound = errors.New("host not found")
)

// Host is a directory entry independent of any single visit.
type Host struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Department string    `json:"department"`
	PhotoPath  string    `json:"photoPath"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Repository persists hosts.
type Repository interface {
	ListActive(ctx context.Context) ([]Host, error)
	GetByID(ctx context.Context, id string) (*Host, error)
	Insert(ctx context.Context, h Host) (Host, error)
	Update(ctx context.Context, id string, h Host, photoPath *string) (*Host, error)
	SetStatus(ctx context.Context, id, status string) (bool, error)
	CountActive(ctx context.Context) (int, error)
}

// Directory coordinates host registration and lookups.
type Directory struct {
	repo   Repository
	photos photo.Store
}

// NewDirectory creates a directory backed by a repository and photo store.
func NewDirectory(repo Repository, photos photo.Store) *Directory {
	return &Directory{repo: repo, photos: photos}
}

// UpsertRequest carries the writable host fields. Photo is an optional
// base64 image; when empty the existing photo is left untouched.
type UpsertRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	Photo      string `json:"photo"`
}

// List returns active hosts sorted by name.
func (d *Directory) List(ctx context.Context) ([]Host, error) {
	return d.repo.ListActive(ctx)
}

// Get returns a host by id, active or not. Visits resolve their host
// reference through this even after deactivation.
func (d *Directory) Get(ctx context.Context, id string) (*Host, error) {
	return d.repo.GetByID(ctx, id)
}

// Create registers a new active host, storing the photo if one was supplied.
func (d *Directory) Create(ctx context.Context, req UpsertRequest) (Host, error) {
	if err := validate(req); err != nil {
		return Host{}, err
	}

	var photoPath string
	if req.Photo != "" {
		ref, err := d.photos.Save(req.Photo, "hosts")
		if err != nil {
			return Host{}, err
		}
		photoPath = ref
	}

	return d.repo.Insert(ctx, Host{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Department: req.Department,
		PhotoPath:  photoPath,
		Status:     StatusActive,
	})
}

// Update replaces the host's fields. The photo is replaced only when a new
// one is supplied; the old reference is simply abandoned.
func (d *Directory) Update(ctx context.Context, id string, req UpsertRequest) (Host, error) {
	if err := validate(req); err != nil {
		return Host{}, err
	}

	var photoPath *string
	if req.Photo != "" {
		ref, err := d.photos.Save(req.Photo, "hosts")
		if err != nil {
			return Host{}, err
		}
		photoPath = &ref
	}

	updated, err := d.repo.Update(ctx, id, Host{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Department: req.Department,
	}, photoPath)
	if err != nil {
		return Host{}, err
	}
	if updated == nil {
		return Host{}, ErrNotFound
	}
	return *updated, nil
}

// Deactivate soft-deletes a host: it disappears from List and from
// check-in selection, but existing visits keep their reference intact.
func (d *Directory) Deactivate(ctx context.Context, id string) error {
	ok, err := d.repo.SetStatus(ctx, id, StatusInactive)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// CountActive returns the number of active hosts, used by dashboard stats.
func (d *Directory) CountActive(ctx context.Context) (int, error) {
	return d.repo.CountActive(ctx)
}

func validate(req UpsertRequest) error {
	switch {
	case req.Name == "":
		return fmt.Errorf("%w: name", ErrMissingField)
	case req.Email == "":
		return fmt.Errorf("%w: email", ErrMissingField)
	case req.Phone == "":
		return fmt.Errorf("%w: phone", ErrMissingField)
	}
	return nil
}
