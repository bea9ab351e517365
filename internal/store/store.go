// Package store provides persistence for captured subscriber emails.
package store

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by repositories that have no backing database.
var ErrUnavailable = errors.New("email persistence unavailable")

// SaveResult reports what SaveEmail did.
type SaveResult int

const (
	// Saved means the email was not present and has been stored.
	Saved SaveResult = iota
	// AlreadyPresent means the email was stored by an earlier request.
	AlreadyPresent
)

func (r SaveResult) String() string {
	switch r {
	case Saved:
		return "saved"
	case AlreadyPresent:
		return "already_present"
	default:
		return "unknown"
	}
}

// Repository defines the interface for persisting subscriber emails.
type Repository interface {
	// SaveEmail stores email if it is not already present. The check and the
	// insert are one atomic operation.
	SaveEmail(ctx context.Context, email string) (SaveResult, error)

	// CountEmails returns the number of stored emails.
	CountEmails(ctx context.Context) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// Disabled is the Repository used when no database is configured.
// Every write reports ErrUnavailable.
type Disabled struct{}

// SaveEmail implements Repository.
func (Disabled) SaveEmail(context.Context, string) (SaveResult, error) {
	return AlreadyPresent, ErrUnavailable
}

// CountEmails implements Repository.
func (Disabled) CountEmails(context.Context) (int64, error) { return 0, ErrUnavailable }

// Ping implements Repository.
func (Disabled) Ping(context.Context) error { return ErrUnavailable }

// Close implements Repository.
func (Disabled) Close() error { return nil }

var _ Repository = Disabled{}
