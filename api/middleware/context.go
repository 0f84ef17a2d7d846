package middleware

import "context"

type travelerKey struct{}

// Traveler is the authenticated caller attached by Auth.
type Traveler struct {
	ID          string
	Email       string
	DisplayName string
}

// WithTraveler stores the caller identity on ctx.
func WithTraveler(ctx context.Context, t Traveler) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, travelerKey{}, t)
}

// TravelerFromContext reports the caller identity, if any.
func TravelerFromContext(ctx context.Context) (Traveler, bool) {
	if ctx == nil {
		return Traveler{}, false
	}
	t, ok := ctx.Value(travelerKey{}).(Traveler)
	return t, ok && t.ID != ""
}

// WithUserID attaches a bare user identifier, keeping any other claims.
func WithUserID(ctx context.Context, userID string) context.Context {
	t, _ := TravelerFromContext(ctx)
	t.ID = userID
	return WithTraveler(ctx, t)
}

func UserIDFromContext(ctx context.Context) string {
	t, _ := TravelerFromContext(ctx)
	return t.ID
}

func EmailFromContext(ctx context.Context) string {
	t, _ := TravelerFromContext(ctx)
	return t.Email
}

func DisplayNameFromContext(ctx context.Context) string {
	t, _ := TravelerFromContext(ctx)
	return t.DisplayName
}
