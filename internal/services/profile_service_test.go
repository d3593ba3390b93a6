package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vitalboard/server/internal/database"
	"github.com/vitalboard/server/internal/models"
)

func newProfileService(t *testing.T) (*ProfileService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Prepare(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	// A long settle window so tests control flushing explicitly via Get/Flush.
	svc, err := NewProfileService(db, WithFlushDelay(time.Hour))
	require.NoError(t, err)

	return svc, db
}

func decodeFavorites(t *testing.T, profile models.Profile) []string {
	t.Helper()

	var favorites []string
	require.NoError(t, json.Unmarshal(profile.Favorites, &favorites))
	return favorites
}

func TestGetUnknownEmailReturnsEmptyProfile(t *testing.T) {
	svc, _ := newProfileService(t)

	profile, err := svc.Get(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "a@x.com", profile.UserEmail)
	require.Empty(t, decodeFavorites(t, profile))
}

func TestSetFavoritesVisibleThroughGet(t *testing.T) {
	svc, _ := newProfileService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetFavorites(ctx, "a@x.com", []string{"bp-trend", "hr-zone"}))

	profile, err := svc.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, []string{"bp-trend", "hr-zone"}, decodeFavorites(t, profile))
}

func TestBurstCoalescesToLatestValue(t *testing.T) {
	svc, db := newProfileService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetFavorites(ctx, "a@x.com", []string{"one"}))
	require.NoError(t, svc.SetFavorites(ctx, "a@x.com", []string{"one", "two"}))
	require.NoError(t, svc.SetFavorites(ctx, "a@x.com", []string{"two"}))

	profile, err := svc.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, []string{"two"}, decodeFavorites(t, profile))

	var count int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRepeatedUpdatesDoNotForkRow(t *testing.T) {
	svc, db := newProfileService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.SetFavorites(ctx, "a@x.com", []string{"only"}))
		_, err := svc.Get(ctx, "a@x.com")
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestNilFavoritesStoredAsEmptyList(t *testing.T) {
	svc, _ := newProfileService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetFavorites(ctx, "a@x.com", nil))

	profile, err := svc.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.Empty(t, decodeFavorites(t, profile))
}

func TestFlushPersistsAllPending(t *testing.T) {
	svc, db := newProfileService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetFavorites(ctx, "a@x.com", []string{"a"}))
	require.NoError(t, svc.SetFavorites(ctx, "b@x.com", []string{"b"}))

	require.NoError(t, svc.Flush(ctx))

	var count int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestProfilesAreIsolatedByEmail(t *testing.T) {
	svc, _ := newProfileService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetFavorites(ctx, "a@x.com", []string{"a"}))
	require.NoError(t, svc.SetFavorites(ctx, "b@x.com", []string{"b"}))

	profile, err := svc.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, decodeFavorites(t, profile))
}
