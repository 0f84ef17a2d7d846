package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 5, time.UTC), ID: uuid.New()}
	parsed, err := ParseCursor(EncodeCursor(c))
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.True(t, c.CreatedAt.Equal(parsed.CreatedAt))
	assert.Equal(t, c.ID, parsed.ID)
}

func TestParseCursorEmptyAndInvalid(t *testing.T) {
	c, err := ParseCursor("  ")
	assert.NoError(t, err)
	assert.Nil(t, c)

	_, err = ParseCursor("not-base64!!")
	assert.Error(t, err)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, 8, LimitWithBuffer(7))
}

func TestTrim(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	now := time.Now().UTC()
	cursorOf := func(id uuid.UUID) Cursor { return Cursor{CreatedAt: now, ID: id} }

	page := Trim(ids, 2, cursorOf)
	assert.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)
	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, ids[1], next.ID)

	last := Trim(ids, 5, cursorOf)
	assert.Len(t, last.Items, 3)
	assert.Empty(t, last.NextCursor)
}
