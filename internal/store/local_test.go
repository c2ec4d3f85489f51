package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajvir-app/mining-server/internal/model"
)

func openTestLocal(t *testing.T) *Local {
	t.Helper()
	s, err := OpenLocal(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLocalLoadMissing(t *testing.T) {
	s := openTestLocal(t)

	user, err := s.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestLocalSaveAndLoad(t *testing.T) {
	s := openTestLocal(t)
	ctx := context.Background()

	startedAt := time.Now().Truncate(time.Second)
	require.NoError(t, s.Save(ctx, "local", model.StateDelta{
		Mining: &model.MiningSnapshot{
			TotalPoints:  7,
			Active:       true,
			SecondsToday: 120,
			PointsToday:  1,
			LastReset:    "2025-03-10",
			StartedAt:    &startedAt,
			DaysActive:   3,
			FirstUseDate: "2025-03-08",
		},
	}))

	user, err := s.Load(ctx, "local")
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, 7, user.TotalPoints)
	assert.True(t, user.MiningActive)
	assert.Equal(t, 120, user.SecondsToday)
	assert.Equal(t, 1, user.PointsToday)
	assert.Equal(t, "2025-03-10", user.LastReset)
	assert.Equal(t, 3, user.DaysActive)
	require.NotNil(t, user.StartedAt)
	assert.True(t, user.StartedAt.Equal(startedAt))
}

func TestLocalSavePartialGroups(t *testing.T) {
	s := openTestLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "local", model.StateDelta{
		Mining: &model.MiningSnapshot{TotalPoints: 5, LastReset: "2025-03-10", FirstUseDate: "2025-03-10", DaysActive: 1},
	}))

	avatar := "data:image/png;base64,abc"
	lang := "pa"
	require.NoError(t, s.Save(ctx, "local", model.StateDelta{
		Profile:  &model.ProfileDelta{Name: "Rajvir", Avatar: &avatar},
		Language: &lang,
	}))

	user, err := s.Load(ctx, "local")
	require.NoError(t, err)
	require.NotNil(t, user)

	// A profile write leaves the accrual columns alone.
	assert.Equal(t, 5, user.TotalPoints)
	assert.Equal(t, "Rajvir", user.Name)
	require.NotNil(t, user.Avatar)
	assert.Equal(t, avatar, *user.Avatar)
	assert.Equal(t, "pa", user.Language)
}

func TestLocalRecharges(t *testing.T) {
	s := openTestLocal(t)
	ctx := context.Background()

	first, err := s.AppendRecharge(ctx, model.CreateRechargeParams{
		UserID: "local", Destination: "01012345678", Points: 28,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, model.RechargeStatusPending, first.Status)

	second, err := s.AppendRecharge(ctx, model.CreateRechargeParams{
		UserID: "local", Destination: "01087654321", Points: 28,
	})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	records, err := s.ListRecharges(ctx, "local", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, second.ID, records[0].ID)
	assert.Equal(t, "01087654321", records[0].Destination)

	page, err := s.ListRecharges(ctx, "local", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)
}

func TestLocalRechargesOtherAccountExcluded(t *testing.T) {
	s := openTestLocal(t)
	ctx := context.Background()

	_, err := s.AppendRecharge(ctx, model.CreateRechargeParams{
		UserID: "a", Destination: "01012345678", Points: 28,
	})
	require.NoError(t, err)

	records, err := s.ListRecharges(ctx, "b", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}
