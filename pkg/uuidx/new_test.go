package uuidx

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	id := New()
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, uuid.RFC4122, id.Variant())
	assert.NotEqual(t, id, New())
}

func TestNewString(t *testing.T) {
	id, err := uuid.Parse(NewString())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Regexp(t, "^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$", NewString())
}

func TestCreated(t *testing.T) {
	before := time.Now().Add(-time.Second)
	created, ok := Created(New())
	require.True(t, ok)
	assert.WithinRange(t, created, before, time.Now().Add(time.Second))

	_, ok = Created(uuid.New())
	assert.False(t, ok)
}
