package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"modguard/internal/moderation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestReportStore(t *testing.T) *ReportStore {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store.ReportStore()
}

func TestReportLifecycle(t *testing.T) {
	ctx := context.Background()
	store := setupTestReportStore(t)

	report := moderation.Report{
		ReporterID:   "user1",
		TargetType:   moderation.TargetComment,
		TargetID:     "comment42",
		Category:     "abuse",
		Description:  "Targeted harassment in replies",
		EvidenceURLs: []string{"https://example.com/thread"},
		Severity:     3,
	}

	created, err := store.CreateReport(ctx, report)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, moderation.StatusOpen, created.Status)

	t.Run("round trip", func(t *testing.T) {
		retrieved, err := store.GetReport(ctx, created.ID)
		require.NoError(t, err)

		assert.Equal(t, "user1", retrieved.ReporterID)
		assert.Equal(t, moderation.TargetComment, retrieved.TargetType)
		assert.Equal(t, "abuse", retrieved.Category)
		assert.Equal(t, []string{"https://example.com/thread"}, retrieved.EvidenceURLs)
		assert.Equal(t, 3, retrieved.Severity)
		assert.Empty(t, retrieved.Actions)
	})

	t.Run("apply action records action and audit atomically", func(t *testing.T) {
		now := time.Now()
		action := moderation.Action{
			ID:        "action1",
			ReportID:  created.ID,
			Kind:      moderation.ActionWarn,
			Reason:    "first offense",
			ActorID:   "admin1",
			CreatedAt: now,
		}
		audit := moderation.AuditEntry{
			ID:        "audit1",
			ActorID:   "admin1",
			ReportID:  created.ID,
			Action:    moderation.ActionWarn,
			Reason:    "first offense",
			Timestamp: now,
		}

		updated, err := store.ApplyAction(ctx, action, audit)
		require.NoError(t, err)

		assert.Equal(t, moderation.StatusReviewed, updated.Status)
		require.Len(t, updated.Actions, 1)
		assert.Equal(t, moderation.ActionWarn, updated.Actions[0].Kind)

		entries, err := store.ListAuditLog(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "audit1", entries[0].ID)
		assert.Equal(t, "admin1", entries[0].ActorID)
	})

	t.Run("terminal report rejects further actions", func(t *testing.T) {
		now := time.Now()
		action := moderation.Action{
			ID: "action2", ReportID: created.ID, Kind: moderation.ActionRemove,
			ActorID: "admin1", CreatedAt: now,
		}
		audit := moderation.AuditEntry{
			ID: "audit2", ActorID: "admin1", ReportID: created.ID,
			Action: moderation.ActionRemove, Timestamp: now,
		}
		updated, err := store.ApplyAction(ctx, action, audit)
		require.NoError(t, err)
		assert.Equal(t, moderation.StatusActioned, updated.Status)

		action.ID, audit.ID = "action3", "audit3"
		_, err = store.ApplyAction(ctx, action, audit)
		assert.ErrorIs(t, err, moderation.ErrReportClosed)

		// No audit entry for the rejected action.
		entries, err := store.ListAuditLog(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("nonexistent report", func(t *testing.T) {
		_, err := store.GetReport(ctx, "nope")
		assert.ErrorIs(t, err, moderation.ErrReportNotFound)
	})
}

func TestApplyActionConcurrent(t *testing.T) {
	ctx := context.Background()
	store := setupTestReportStore(t)

	created, err := store.CreateReport(ctx, moderation.Report{
		ReporterID: "user1",
		TargetType: moderation.TargetPost,
		TargetID:   "post1",
		Category:   "spam",
	})
	require.NoError(t, err)

	// Several admins race to close the same report. Exactly one decision
	// must commit; the rest see the terminal state.
	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			now := time.Now()
			suffix := strconv.Itoa(i)
			_, err := store.ApplyAction(ctx, moderation.Action{
				ID: "action" + suffix, ReportID: created.ID, Kind: moderation.ActionBan,
				ActorID: "admin" + suffix, CreatedAt: now,
			}, moderation.AuditEntry{
				ID: "audit" + suffix, ActorID: "admin" + suffix, ReportID: created.ID,
				Action: moderation.ActionBan, Timestamp: now,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var succeeded, closed int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, moderation.ErrReportClosed):
			closed++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, closed)

	entries, err := store.ListAuditLog(ctx, workers)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestListReportsPagination(t *testing.T) {
	ctx := context.Background()
	store := setupTestReportStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	var ids []string
	for i := 0; i < 5; i++ {
		created, err := store.CreateReport(ctx, moderation.Report{
			ReporterID: "reporter",
			TargetType: moderation.TargetPost,
			TargetID:   "post" + string(rune('0'+i)),
			Category:   "spam",
		})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	first, err := store.ListReports(ctx, moderation.ReportFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.Equal(t, 3, first.Limit)
	assert.True(t, first.HasMore)
	assert.Equal(t, ids[4], first.Items[0].ID)

	second, err := store.ListReports(ctx, moderation.ReportFilter{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.False(t, second.HasMore)
	assert.Equal(t, ids[0], second.Items[1].ID)

	filtered, err := store.ListReports(ctx, moderation.ReportFilter{Category: "privacy"})
	require.NoError(t, err)
	assert.Empty(t, filtered.Items)
	// Unset limits default even when the page comes back short.
	assert.Equal(t, 20, filtered.Limit)
}
