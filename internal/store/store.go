// Package store abstracts the shared blob container every protocol entity
// lives in: create, list-by-prefix, get, delete. Two implementations are
// provided: an in-memory store for tests and single-process use, and a
// GORM-backed store (SQLite or MySQL) for shared deployments.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get and Delete when no object has the given
// name. Both sides of the protocol may race to delete the same object, so
// callers treat a not-found delete as a no-op, not a fault.
var ErrNotFound = errors.New("store: object not found")

// Object is a stored blob and its metadata.
type Object struct {
	Name      string
	Content   []byte
	CreatedAt time.Time
}

// Store is the blob container contract. Put overwrites any existing object
// with the same name (the protocol's "supersede" update model).
type Store interface {
	Put(ctx context.Context, name string, content []byte) error
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}
