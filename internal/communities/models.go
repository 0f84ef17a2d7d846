package communities

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
)

// Community is a destination-centred group of travelers.
type Community struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Destination string    `json:"destination,omitempty"`
	OwnerID     string    `json:"ownerId"`
	Members     []string  `json:"-"`
	MemberCount int       `json:"memberCount"`
	Version     int64     `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasMember reports whether userID belongs to c.
func (c Community) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// CreateInput is the payload for a new community.
type CreateInput struct {
	Name        string `json:"name" validate:"required,min=3,max=80"`
	Description string `json:"description" validate:"max=500"`
	Destination string `json:"destination" validate:"max=120"`
}

// ListParams filters a community listing.
type ListParams struct {
	Destination string
	// MemberID restricts the listing to communities the user has joined.
	MemberID string
	Limit    int
	Cursor   string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

func (in CreateInput) normalize() CreateInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Destination = strings.TrimSpace(in.Destination)
	return in
}

func (in CreateInput) validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid community")
	}
	details := map[string]string{}
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		case "min":
			details[fe.Field()] = "must be at least " + fe.Param() + " characters"
		case "max":
			details[fe.Field()] = "must be at most " + fe.Param() + " characters"
		default:
			details[fe.Field()] = "is invalid"
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid community").WithDetails(details)
}

func destinationKey(destination string) string {
	return strings.ToLower(strings.TrimSpace(destination))
}

// RoleOf returns userID's role, or "" when they are not a member.
func (c Community) RoleOf(userID string) enums.CommunityRole {
	switch {
	case c.OwnerID == userID:
		return enums.CommunityRoleOwner
	case c.HasMember(userID):
		return enums.CommunityRoleMember
	}
	return ""
}
