package communities

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/wayfarer-backend/pkg/docstore"
	"github.com/angelmondragon/wayfarer-backend/pkg/pagination"
)

const collection = "communities"

// ErrNotFound is returned when a community id does not exist.
var ErrNotFound = errors.New("community not found")

var Indexes = []docstore.Index{
	{Collection: collection, Keys: []string{"destination_key", "created_at"}},
	{Collection: collection, Keys: []string{"members"}},
}

// Repository persists communities.
type Repository interface {
	Create(ctx context.Context, c Community) error
	Get(ctx context.Context, id string) (*Community, error)
	List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]Community, error)
	// ReplaceMembers writes the member list only if the stored version equals expectedVersion.
	ReplaceMembers(ctx context.Context, c Community, expectedVersion int64) (bool, error)
}

// ListFilter is the storage-level form of ListParams.
type ListFilter struct {
	Destination string
	MemberID    string
}

type communityDocument struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	Description    string    `bson:"description,omitempty"`
	Destination    string    `bson:"destination,omitempty"`
	DestinationKey string    `bson:"destination_key,omitempty"`
	OwnerID        string    `bson:"owner_id"`
	Members        []string  `bson:"members"`
	MemberCount    int       `bson:"member_count"`
	Version        int64     `bson:"version"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func toDocument(c Community) communityDocument {
	members := c.Members
	if members == nil {
		members = []string{}
	}
	return communityDocument{
		ID:             c.ID,
		Name:           c.Name,
		Description:    c.Description,
		Destination:    c.Destination,
		DestinationKey: destinationKey(c.Destination),
		OwnerID:        c.OwnerID,
		Members:        members,
		MemberCount:    len(members),
		Version:        c.Version,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func (d communityDocument) toCommunity() Community {
	return Community{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Destination: d.Destination,
		OwnerID:     d.OwnerID,
		Members:     d.Members,
		MemberCount: d.MemberCount,
		Version:     d.Version,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type repository struct {
	store docstore.Store
}

// NewRepository returns a community repository on the given document store.
func NewRepository(store docstore.Store) Repository {
	return &repository{store: store}
}

func (r *repository) Create(ctx context.Context, c Community) error {
	_, err := r.store.Create(ctx, collection, toDocument(c))
	return err
}

func (r *repository) Get(ctx context.Context, id string) (*Community, error) {
	var doc communityDocument
	found, err := r.store.Get(ctx, collection, id, &doc)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	c := doc.toCommunity()
	return &c, nil
}

func (r *repository) List(ctx context.Context, lf ListFilter, cursor *pagination.Cursor, limit int) ([]Community, error) {
	filter := docstore.Filter{}
	if key := destinationKey(lf.Destination); key != "" {
		filter["destination_key"] = key
	}
	if lf.MemberID != "" {
		filter["members"] = lf.MemberID
	}
	if cursor != nil {
		filter["$or"] = []docstore.Filter{
			{"created_at": docstore.Filter{"$lt": cursor.CreatedAt}},
			{"created_at": cursor.CreatedAt, "_id": docstore.Filter{"$lt": cursor.ID.String()}},
		}
	}

	var docs []communityDocument
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
	out := make([]Community, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toCommunity())
	}
	return out, nil
}

func (r *repository) ReplaceMembers(ctx context.Context, c Community, expectedVersion int64) (bool, error) {
	doc := toDocument(c)
	return r.store.UpdateWhere(ctx, collection,
		docstore.Filter{"_id": c.ID, "version": expectedVersion},
		docstore.Fields{
			"members":      doc.Members,
			"member_count": doc.MemberCount,
			"version":      doc.Version,
			"updated_at":   doc.UpdatedAt,
		})
}
