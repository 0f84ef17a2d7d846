package communities

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wayfarer-backend/pkg/docstore"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
)

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	if repo == nil {
		repo = NewRepository(docstore.NewMemory())
	}
	clock := time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	svc, err := NewService(ServiceParams{
		Repo: repo,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
		Backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewConstant(time.Millisecond))
		},
	})
	require.NoError(t, err)
	return svc
}

func TestCreateCommunity(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, "owner", CreateInput{Name: "  Goa Backpackers ", Destination: "Goa"})
	require.NoError(t, err)
	assert.Equal(t, "Goa Backpackers", c.Name)
	assert.Equal(t, 1, c.MemberCount)
	assert.True(t, c.HasMember("owner"))

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
	assert.Equal(t, []string{"owner"}, got.Members)
}

func TestCreateCommunityValidation(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Create(context.Background(), "owner", CreateInput{Name: "ab"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, map[string]string{"name": "must be at least 3 characters"}, pkgerrors.As(err).Details())

	_, err = svc.Create(context.Background(), "", CreateInput{Name: "Valid name"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestJoinAndLeave(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	c, err := svc.Create(ctx, "owner", CreateInput{Name: "Kyoto Walkers", Destination: "Kyoto"})
	require.NoError(t, err)

	joined, err := svc.Join(ctx, "traveler", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, joined.MemberCount)

	again, err := svc.Join(ctx, "traveler", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.MemberCount)
	assert.Equal(t, joined.Version, again.Version)

	member, err := svc.IsMember(ctx, c.ID, "traveler")
	require.NoError(t, err)
	assert.True(t, member)

	left, err := svc.Leave(ctx, "traveler", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, left.MemberCount)

	member, err = svc.IsMember(ctx, c.ID, "traveler")
	require.NoError(t, err)
	assert.False(t, member)
}

func TestOwnerCannotLeave(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	c, err := svc.Create(ctx, "owner", CreateInput{Name: "Kyoto Walkers"})
	require.NoError(t, err)

	_, err = svc.Leave(ctx, "owner", c.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestJoinUnknownCommunity(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Join(context.Background(), "traveler", "missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListFiltersAndPaginates(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	for _, name := range []string{"Goa One", "Goa Two", "Goa Three"} {
		_, err := svc.Create(ctx, "owner", CreateInput{Name: name, Destination: "Goa"})
		require.NoError(t, err)
	}
	other, err := svc.Create(ctx, "owner", CreateInput{Name: "Paris Cafes", Destination: "Paris"})
	require.NoError(t, err)
	_, err = svc.Join(ctx, "traveler", other.ID)
	require.NoError(t, err)

	page, err := svc.List(ctx, ListParams{Destination: "goa", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Goa Three", page.Items[0].Name)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.List(ctx, ListParams{Destination: "goa", Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, "Goa One", next.Items[0].Name)
	assert.Empty(t, next.NextCursor)

	mine, err := svc.List(ctx, ListParams{MemberID: "traveler"})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "Paris Cafes", mine.Items[0].Name)
}

// racingRepo loses the first write to a concurrent join.
type racingRepo struct {
	Repository
	raced bool
}

func (r *racingRepo) ReplaceMembers(ctx context.Context, c Community, expectedVersion int64) (bool, error) {
	if !r.raced {
		r.raced = true
		current, err := r.Repository.Get(ctx, c.ID)
		if err != nil {
			return false, err
		}
		current.Members = append(current.Members, "racer")
		current.Version++
		if _, err := r.Repository.ReplaceMembers(ctx, *current, expectedVersion); err != nil {
			return false, err
		}
		return false, nil
	}
	return r.Repository.ReplaceMembers(ctx, c, expectedVersion)
}

func TestJoinRetriesAfterConcurrentChange(t *testing.T) {
	repo := &racingRepo{Repository: NewRepository(docstore.NewMemory())}
	svc := newTestService(t, repo)
	ctx := context.Background()
	c, err := svc.Create(ctx, "owner", CreateInput{Name: "Lisbon Surfers"})
	require.NoError(t, err)

	joined, err := svc.Join(ctx, "traveler", c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"owner", "racer", "traveler"}, joined.Members)
	assert.Equal(t, int64(3), joined.Version)
}

func TestRoleOf(t *testing.T) {
	c := Community{OwnerID: "owner", Members: []string{"owner", "traveler"}}
	assert.Equal(t, enums.CommunityRoleOwner, c.RoleOf("owner"))
	assert.Equal(t, enums.CommunityRoleMember, c.RoleOf("traveler"))
	assert.Equal(t, enums.CommunityRole(""), c.RoleOf("stranger"))
}
