package db

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/ecu-vault/gateway/config"
	"github.com/pushchain/ecu-vault/gateway/store"
)

func TestDeleteFinishedRequests(t *testing.T) {
	database, err := OpenInMemoryDB(true)
	require.NoError(t, err)
	defer database.Close()

	now := time.Now()
	oldTime := now.Add(-25 * time.Hour)
	recentTime := now.Add(-30 * time.Minute)

	oldDelivered := &store.DecryptionRequest{Handles: "[]", Callback: "verify_message", Status: store.RequestStatusDelivered}
	oldFailed := &store.DecryptionRequest{Handles: "[]", Callback: "verify_message", Status: store.RequestStatusFailed}
	recentDelivered := &store.DecryptionRequest{Handles: "[]", Callback: "verify_message", Status: store.RequestStatusDelivered}
	oldPending := &store.DecryptionRequest{Handles: "[]", Callback: "verify_message", Status: store.RequestStatusPending}

	for _, req := range []*store.DecryptionRequest{oldDelivered, oldFailed, recentDelivered, oldPending} {
		require.NoError(t, database.Client().Create(req).Error)
	}

	// Manually set the UpdatedAt timestamps since GORM auto-sets them
	require.NoError(t, database.Client().Model(oldDelivered).UpdateColumn("updated_at", oldTime).Error)
	require.NoError(t, database.Client().Model(oldFailed).UpdateColumn("updated_at", oldTime).Error)
	require.NoError(t, database.Client().Model(recentDelivered).UpdateColumn("updated_at", recentTime).Error)
	require.NoError(t, database.Client().Model(oldPending).UpdateColumn("updated_at", oldTime).Error)

	deleted, err := database.DeleteFinishedRequests(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []store.DecryptionRequest
	require.NoError(t, database.Client().Order("id").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, recentDelivered.ID, remaining[0].ID)
	assert.Equal(t, oldPending.ID, remaining[1].ID)

	// ids are not reused after deletion
	next := &store.DecryptionRequest{Handles: "[]", Callback: "verify_message", Status: store.RequestStatusPending}
	require.NoError(t, database.Client().Create(next).Error)
	assert.Greater(t, next.ID, oldPending.ID)
}

func TestRequestCleanerStartStop(t *testing.T) {
	database, err := OpenInMemoryDB(true)
	require.NoError(t, err)
	defer database.Close()

	cfg := &config.Config{CleanupIntervalSeconds: 1, RetentionPeriodSeconds: 1}
	cleaner := NewRequestCleaner(database, cfg, zerolog.New(zerolog.NewTestWriter(t)))

	old := &store.DecryptionRequest{Handles: "[]", Callback: "verify_message", Status: store.RequestStatusFailed}
	require.NoError(t, database.Client().Create(old).Error)
	require.NoError(t, database.Client().Model(old).UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, cleaner.Start(ctx))

	var count int64
	require.NoError(t, database.Client().Model(&store.DecryptionRequest{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	cleaner.Stop()
	require.NotPanics(t, cleaner.Stop)
}
