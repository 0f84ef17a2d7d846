// Package assistant answers free-form travel questions, optionally grounded
// in one of the user's saved trips.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/wayfarer-backend/internal/trips"
	"github.com/angelmondragon/wayfarer-backend/pkg/ai"
	"github.com/angelmondragon/wayfarer-backend/pkg/docstore"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

const (
	collection = "assistant_conversations"
	// historyTurns caps the replayed history. Odd so the replay opens with a user turn.
	historyTurns     = 21
	maxMessageLength = 4000
)

var Indexes = []docstore.Index{
	{Collection: collection, Keys: []string{"user_id", "updated_at"}},
}

const systemPrompt = `You are Wayfarer, a friendly travel assistant. Answer concisely and practically.
Prefer concrete suggestions with approximate costs in the trip currency when one is known.
If a question is unrelated to travel, politely steer back to trip planning.`

type textModel interface {
	Generate(ctx context.Context, req ai.Request) (string, error)
}

type tripGetter interface {
	Get(ctx context.Context, ownerID, tripID string) (*trips.SavedTrip, error)
}

// Turn is one exchange entry in a conversation.
type Turn struct {
	Role      ai.Role   `json:"role" bson:"role"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Conversation is a user's thread with the assistant.
type Conversation struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	TripID    string    `json:"tripId,omitempty" bson:"trip_id,omitempty"`
	Turns     []Turn    `json:"turns" bson:"turns"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// AskInput starts or continues a conversation.
type AskInput struct {
	ConversationID string `json:"conversationId"`
	TripID         string `json:"tripId"`
	Message        string `json:"message"`
}

// Reply carries the answer and the updated conversation.
type Reply struct {
	Answer       string       `json:"answer"`
	Conversation Conversation `json:"conversation"`
}

type Service struct {
	model textModel
	store docstore.Store
	trips tripGetter
	logg  *logger.Logger
	now   func() time.Time
}

func NewService(model textModel, store docstore.Store, trips tripGetter, logg *logger.Logger) (*Service, error) {
	if model == nil {
		return nil, fmt.Errorf("text model required")
	}
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{model: model, store: store, trips: trips, logg: logg, now: time.Now}, nil
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Ask appends the user's message, queries the model with the recent history
// and stores the answer. The conversation is only written once the model
// has answered.
func (s *Service) Ask(ctx context.Context, userID string, in AskInput) (*Reply, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is too long").
			WithDetails(map[string]any{"max": maxMessageLength})
	}

	conv, isNew, err := s.conversation(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	system := systemPrompt
	if conv.TripID != "" {
		tripContext, err := s.tripContext(ctx, userID, conv.TripID)
		if err != nil {
			return nil, err
		}
		system += "\n\n" + tripContext
	}

	now := s.timestamp()
	conv.Turns = append(conv.Turns, Turn{Role: ai.RoleUser, Text: message, CreatedAt: now})
	answer, err := s.model.Generate(ctx, ai.Request{System: system, Messages: recent(conv.Turns)})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "conversation_id", conv.ID), "assistant generate failed", err)
		return nil, err
	}
	conv.Turns = append(conv.Turns, Turn{Role: ai.RoleModel, Text: answer, CreatedAt: s.timestamp()})
	conv.UpdatedAt = s.timestamp()

	if isNew {
		_, err = s.store.Create(ctx, collection, conv)
	} else {
		_, err = s.store.Update(ctx, collection, conv.ID, docstore.Fields{
			"turns":      conv.Turns,
			"updated_at": conv.UpdatedAt,
		})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save conversation")
	}
	return &Reply{Answer: answer, Conversation: *conv}, nil
}

// Conversation returns one of the user's conversations.
func (s *Service) Conversation(ctx context.Context, userID, id string) (*Conversation, error) {
	var conv Conversation
	found, err := s.store.Get(ctx, collection, id, &conv)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	if conv.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "conversation belongs to another user")
	}
	return &conv, nil
}

func (s *Service) conversation(ctx context.Context, userID string, in AskInput) (*Conversation, bool, error) {
	if strings.TrimSpace(in.ConversationID) != "" {
		conv, err := s.Conversation(ctx, userID, in.ConversationID)
		if err != nil {
			return nil, false, err
		}
		return conv, false, nil
	}
	now := s.timestamp()
	return &Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		TripID:    strings.TrimSpace(in.TripID),
		Turns:     []Turn{},
		CreatedAt: now,
		UpdatedAt: now,
	}, true, nil
}

func (s *Service) tripContext(ctx context.Context, userID, tripID string) (string, error) {
	if s.trips == nil {
		return "", nil
	}
	trip, err := s.trips.Get(ctx, userID, tripID)
	if err != nil {
		return "", err
	}
	return describeTrip(*trip), nil
}

func describeTrip(trip trips.SavedTrip) string {
	it := trip.Itinerary
	p := trip.Preferences
	var sb strings.Builder
	fmt.Fprintf(&sb, "The traveler is asking about their trip %q from %s to %s (%s to %s), %d travelers.\n",
		it.TripName, p.Origin, p.Destination, p.StartDate, p.EndDate, p.TotalTravelers())
	fmt.Fprintf(&sb, "Estimated activity cost: %s %s.\n", it.Currency, it.TotalEstimatedCost.StringFixed(0))
	for _, day := range it.Days {
		names := make([]string, 0, len(day.Activities))
		for _, a := range day.Activities {
			names = append(names, a.Name)
		}
		fmt.Fprintf(&sb, "Day %d (%s): %s\n", day.Day, day.Theme, strings.Join(names, ", "))
	}
	return sb.String()
}

func recent(turns []Turn) []ai.Message {
	if len(turns) > historyTurns {
		turns = turns[len(turns)-historyTurns:]
	}
	out := make([]ai.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, ai.Message{Role: t.Role, Text: t.Text})
	}
	return out
}
