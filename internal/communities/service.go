package communities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/pagination"
)

// Service manages communities and their memberships.
type Service interface {
	Create(ctx context.Context, ownerID string, input CreateInput) (*Community, error)
	List(ctx context.Context, params ListParams) (pagination.Page[Community], error)
	Get(ctx context.Context, id string) (*Community, error)
	Join(ctx context.Context, userID, id string) (*Community, error)
	Leave(ctx context.Context, userID, id string) (*Community, error)
	IsMember(ctx context.Context, id, userID string) (bool, error)
}

type ServiceParams struct {
	Repo    Repository
	Logger  *logger.Logger
	Now     func() time.Time
	Backoff func() retry.Backoff
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	now     func() time.Time
	backoff func() retry.Backoff
}

var errStaleVersion = errors.New("stale community version")

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("community repository required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.Backoff == nil {
		params.Backoff = func() retry.Backoff {
			return retry.WithMaxRetries(4, retry.NewExponential(20*time.Millisecond))
		}
	}
	return &service{
		repo:    params.Repo,
		logg:    params.Logger,
		now:     params.Now,
		backoff: params.Backoff,
	}, nil
}

func (s *service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *service) Create(ctx context.Context, ownerID string, input CreateInput) (*Community, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner id is required")
	}
	input = input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}
	now := s.timestamp()
	c := Community{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		Destination: input.Destination,
		OwnerID:     ownerID,
		Members:     []string{ownerID},
		MemberCount: 1,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save community")
	}
	s.logg.Info(s.logg.WithField(ctx, "community_id", c.ID), "community created")
	return &c, nil
}

func (s *service) List(ctx context.Context, params ListParams) (pagination.Page[Community], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[Community]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	items, err := s.repo.List(ctx, ListFilter{
		Destination: params.Destination,
		MemberID:    params.MemberID,
	}, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return pagination.Page[Community]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list communities")
	}
	return pagination.Trim(items, params.Limit, func(c Community) pagination.Cursor {
		id, _ := uuid.Parse(c.ID)
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: id}
	}), nil
}

func (s *service) Get(ctx context.Context, id string) (*Community, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "community id is required")
	}
	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load community")
	}
	return c, nil
}

// Join adds userID to the community. Joining twice is a no-op.
func (s *service) Join(ctx context.Context, userID, id string) (*Community, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	return s.updateMembers(ctx, id, func(c *Community) (bool, error) {
		if c.HasMember(userID) {
			return false, nil
		}
		c.Members = append(c.Members, userID)
		return true, nil
	})
}

// Leave removes userID from the community. The owner cannot leave.
func (s *service) Leave(ctx context.Context, userID, id string) (*Community, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	return s.updateMembers(ctx, id, func(c *Community) (bool, error) {
		if c.OwnerID == userID {
			return false, pkgerrors.New(pkgerrors.CodeStateConflict, "the owner cannot leave the community")
		}
		kept := make([]string, 0, len(c.Members))
		for _, m := range c.Members {
			if m != userID {
				kept = append(kept, m)
			}
		}
		if len(kept) == len(c.Members) {
			return false, nil
		}
		c.Members = kept
		return true, nil
	})
}

func (s *service) IsMember(ctx context.Context, id, userID string) (bool, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return c.HasMember(userID), nil
}

// updateMembers applies change to the latest community, retrying when a
// concurrent membership change bumps the version first.
func (s *service) updateMembers(ctx context.Context, id string, change func(*Community) (bool, error)) (*Community, error) {
	var out *Community
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		c, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		changed, err := change(c)
		if err != nil || !changed {
			out = c
			return err
		}
		expected := c.Version
		c.Version++
		c.MemberCount = len(c.Members)
		c.UpdatedAt = s.timestamp()
		ok, err := s.repo.ReplaceMembers(ctx, *c, expected)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save community"))
		}
		if !ok {
			return retry.RetryableError(errStaleVersion)
		}
		out = c
		return nil
	})
	if errors.Is(err, errStaleVersion) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "community membership changed concurrently, try again")
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
