// Package docstore is a thin create/update/get/delete/subscribe layer over a
// document database. Documents are addressed by a string _id.
package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// Filter selects documents. Keys are bson field names; values are matched by
// equality or by a single-operator document such as {"$lt": v}.
type Filter map[string]any

// Fields is a partial document applied with $set semantics.
type Fields map[string]any

// Sort orders Find results by one field.
type Sort struct {
	Field string
	Desc  bool
}

// FindOptions bounds a Find call.
type FindOptions struct {
	Sort  []Sort
	Limit int64
}

// Operation is the kind of write observed by a subscription.
type Operation string

const (
	OpInsert  Operation = "insert"
	OpUpdate  Operation = "update"
	OpReplace Operation = "replace"
	OpDelete  Operation = "delete"
)

// Change is delivered to subscribers after a matching write.
type Change struct {
	Operation Operation
	ID        string
	document  bson.Raw
}

// Decode unmarshals the post-write document. Deletes carry no document.
func (c Change) Decode(out any) error {
	if len(c.document) == 0 {
		return ErrNoDocument
	}
	return bson.Unmarshal(c.document, out)
}

// Unsubscribe stops a subscription and waits for its delivery loop to exit.
type Unsubscribe func()

var (
	ErrNotFound    = errors.New("docstore: document not found")
	ErrNoDocument  = errors.New("docstore: change carries no document")
	ErrIDRequired  = errors.New("docstore: document id is required")
	ErrUnsupported = errors.New("docstore: unsupported filter")
)

// Store is the persistence collaborator used by the domain services.
type Store interface {
	Create(ctx context.Context, collection string, doc any) (string, error)
	Update(ctx context.Context, collection, id string, set Fields) (string, error)
	UpdateWhere(ctx context.Context, collection string, filter Filter, set Fields) (bool, error)
	Get(ctx context.Context, collection, id string, out any) (bool, error)
	Delete(ctx context.Context, collection, id string) (bool, error)
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions, out any) error
	Subscribe(ctx context.Context, collection string, filter Filter, fn func(Change)) (Unsubscribe, error)
}

// Index is an ascending compound index a service expects on its collection.
type Index struct {
	Collection string
	Keys       []string
}

type indexer interface {
	EnsureIndex(ctx context.Context, collection string, keys ...string) error
}

// EnsureIndexes creates every index in groups, stopping at the first failure.
func EnsureIndexes(ctx context.Context, target indexer, groups ...[]Index) error {
	for _, group := range groups {
		for _, idx := range group {
			if err := target.EnsureIndex(ctx, idx.Collection, idx.Keys...); err != nil {
				return err
			}
		}
	}
	return nil
}

func idOf(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case interface{ Hex() string }:
		return v.Hex()
	default:
		return ""
	}
}
