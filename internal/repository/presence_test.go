package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/testing/suite"
)

func TestPresenceRepository_GetByID(t *testing.T) {
	t.Run("GetByID_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		presenceRepo := NewPresenceRepository(st.Storage)

		// Given: a stored presence
		presence := &entity.Presence{ID: "123", Status: entity.StatusOnline, LastSeen: time.Now().UTC()}
		require.NoError(t, presenceRepo.CreateOrUpdate(ctx, presence))

		// When: GetByID is called with existing ID
		retrieved, err := presenceRepo.GetByID(ctx, presence.ID)

		// Then: the retrieved presence should match
		require.NoError(t, err)
		assert.Equal(t, presence.ID, retrieved.ID)
		assert.Equal(t, entity.StatusOnline, retrieved.Status)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		_, err := NewPresenceRepository(st.Storage).GetByID(ctx, "9999999")

		require.ErrorIs(t, err, apperror.ErrPlayerNotFound)
	})
}

func TestPresenceRepository_ListActive(t *testing.T) {
	ctx, st := suite.New(t)

	presenceRepo := NewPresenceRepository(st.Storage)
	now := time.Now().UTC()

	// Given: one recent and one stale identity
	require.NoError(t, presenceRepo.CreateOrUpdate(ctx, &entity.Presence{ID: "fresh", Status: entity.StatusOnline, LastSeen: now}))
	require.NoError(t, presenceRepo.CreateOrUpdate(ctx, &entity.Presence{ID: "stale", Status: entity.StatusOnline, LastSeen: now.Add(-time.Hour)}))

	// When: active identities of the last five minutes are listed
	active, err := presenceRepo.ListActive(ctx, now.Add(-5*time.Minute))

	// Then: only the recent one is returned
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "fresh", active[0].ID)

	// And: deleting removes it from the active set
	require.NoError(t, presenceRepo.DeleteByID(ctx, "fresh"))

	active, err = presenceRepo.ListActive(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, active)
}
