package trips

import (
	"context"
	"errors"

	"github.com/angelmondragon/wayfarer-backend/pkg/docstore"
	"github.com/angelmondragon/wayfarer-backend/pkg/pagination"
)

// ErrNotFound is returned when a trip id does not exist.
var ErrNotFound = errors.New("trip not found")

// Indexes backs owner listings.
var Indexes = []docstore.Index{
	{Collection: collection, Keys: []string{"owner_id", "created_at"}},
}

// Repository persists saved trips.
type Repository interface {
	Create(ctx context.Context, trip SavedTrip) error
	Get(ctx context.Context, id string) (*SavedTrip, error)
	ListByOwner(ctx context.Context, ownerID string, cursor *pagination.Cursor, limit int) ([]SavedTrip, error)
	Delete(ctx context.Context, id string) (bool, error)
	// Replace writes trip only if the stored version equals expectedVersion.
	Replace(ctx context.Context, trip SavedTrip, expectedVersion int64) (bool, error)
}

type repository struct {
	store docstore.Store
}

// NewRepository returns a trip repository on the given document store.
func NewRepository(store docstore.Store) Repository {
	return &repository{store: store}
}

func (r *repository) Create(ctx context.Context, trip SavedTrip) error {
	doc, err := toDocument(trip)
	if err != nil {
		return err
	}
	_, err = r.store.Create(ctx, collection, doc)
	return err
}

func (r *repository) Get(ctx context.Context, id string) (*SavedTrip, error) {
	var doc tripDocument
	found, err := r.store.Get(ctx, collection, id, &doc)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	trip, err := doc.toTrip()
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID string, cursor *pagination.Cursor, limit int) ([]SavedTrip, error) {
	filter := docstore.Filter{"owner_id": ownerID}
	if cursor != nil {
		filter["$or"] = []docstore.Filter{
			{"created_at": docstore.Filter{"$lt": cursor.CreatedAt}},
			{"created_at": cursor.CreatedAt, "_id": docstore.Filter{"$lt": cursor.ID.String()}},
		}
	}

	var docs []tripDocument
	err := r.store.Find(ctx, collection, filter, docstore.FindOptions{
		Sort: []docstore.Sort{
			{Field: "created_at", Desc: true},
			{Field: "_id", Desc: true},
		},
		Limit: int64(limit),
	}, &docs)
	if err != nil {
		return nil, err
	}

	out := make([]SavedTrip, 0, len(docs))
	for _, doc := range docs {
		trip, err := doc.toTrip()
		if err != nil {
			return nil, err
		}
		out = append(out, trip)
	}
	return out, nil
}

func (r *repository) Delete(ctx context.Context, id string) (bool, error) {
	return r.store.Delete(ctx, collection, id)
}

func (r *repository) Replace(ctx context.Context, trip SavedTrip, expectedVersion int64) (bool, error) {
	doc, err := toDocument(trip)
	if err != nil {
		return false, err
	}
	return r.store.UpdateWhere(ctx, collection,
		docstore.Filter{"_id": trip.ID, "version": expectedVersion},
		docstore.Fields{
			"itinerary":      doc.Itinerary,
			"preferences":    doc.Preferences,
			"is_booked":      doc.IsBooked,
			"transaction_id": doc.TransactionID,
			"version":        doc.Version,
			"updated_at":     doc.UpdatedAt,
		})
}
