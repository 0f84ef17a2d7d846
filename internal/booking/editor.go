package booking

import (
	"context"

	"github.com/angelmondragon/wayfarer-backend/internal/trips"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
)

// Committer persists an edited itinerary with an optimistic version check.
type Committer interface {
	CommitItinerary(ctx context.Context, ownerID, tripID string, expectedVersion int64, it trips.Itinerary) (*trips.SavedTrip, error)
}

// Editor is the VIEWING/EDITING state machine of a booking session.
type Editor struct {
	Mode     enums.EditMode `json:"mode"`
	ReadOnly bool           `json:"readOnly"`
	// BaseVersion is the trip version the draft was started from.
	BaseVersion int64  `json:"baseVersion"`
	Draft       *Draft `json:"draft,omitempty"`
}

func NewEditor(readOnly bool) Editor {
	return Editor{Mode: enums.EditModeViewing, ReadOnly: readOnly}
}

func (e *Editor) Editing() bool {
	return e.Mode == enums.EditModeEditing && e.Draft != nil
}

// Begin enters EDITING with a fresh draft of trip's itinerary.
func (e *Editor) Begin(trip trips.SavedTrip) error {
	switch {
	case e.ReadOnly:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "itinerary is read-only")
	case trip.IsBooked:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "booked trips cannot be edited")
	case e.Editing():
		return pkgerrors.New(pkgerrors.CodeStateConflict, "already editing")
	}
	e.Mode = enums.EditModeEditing
	e.BaseVersion = trip.Version
	e.Draft = NewDraft(trip.Itinerary)
	return nil
}

// Current returns the draft being edited.
func (e *Editor) Current() (*Draft, error) {
	if !e.Editing() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "not editing")
	}
	return e.Draft, nil
}

// Save commits the draft and returns to VIEWING. On failure the editor stays
// in EDITING so the user can discard or retry.
func (e *Editor) Save(ctx context.Context, committer Committer, ownerID, tripID string) (*trips.SavedTrip, error) {
	draft, err := e.Current()
	if err != nil {
		return nil, err
	}
	saved, err := committer.CommitItinerary(ctx, ownerID, tripID, e.BaseVersion, draft.Itinerary)
	if err != nil {
		return nil, err
	}
	e.reset()
	return saved, nil
}

// Discard drops the draft. The persisted trip is untouched.
func (e *Editor) Discard() error {
	if !e.Editing() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "not editing")
	}
	e.reset()
	return nil
}

func (e *Editor) reset() {
	e.Mode = enums.EditModeViewing
	e.BaseVersion = 0
	e.Draft = nil
}
