package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokkiitech/okusuri/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSettingsRoundtrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	_, err := repo.GetSettings(ctx, "user-a")
	assert.ErrorIs(t, err, ErrNotFound)

	s := domain.DefaultSettings("user-a", "code-123", time.Now())
	s.ReminderTimes[domain.SessionMorning] = "07:30"
	require.NoError(t, repo.UpsertSettings(ctx, s))

	got, err := repo.GetSettings(ctx, "user-a")
	require.NoError(t, err)
	assert.Equal(t, "07:30", got.ReminderTimes[domain.SessionMorning])
	assert.True(t, got.NotificationsEnabled)
	assert.Equal(t, "code-123", got.LinkCode)

	// Toggle one flag independently and update.
	got.LowStockAlertsEnabled = false
	require.NoError(t, repo.UpsertSettings(ctx, got))

	byCode, err := repo.FindSettingsByLinkCode(ctx, "code-123")
	require.NoError(t, err)
	assert.Equal(t, "user-a", byCode.UserID)
	assert.False(t, byCode.LowStockAlertsEnabled)
}

func TestIndependentFlagScans(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Now()

	a := domain.DefaultSettings("user-a", "code-a", now) // both on
	b := domain.DefaultSettings("user-b", "code-b", now)
	b.NotificationsEnabled = false // low-stock only
	c := domain.DefaultSettings("user-c", "code-c", now)
	c.LowStockAlertsEnabled = false // reminders only
	for _, s := range []*domain.ReminderSettings{a, b, c} {
		require.NoError(t, repo.UpsertSettings(ctx, s))
	}

	reminder, err := repo.ListReminderEnabled(ctx)
	require.NoError(t, err)
	lowStock, err := repo.ListLowStockEnabled(ctx)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"user-a", "user-c"}, settingsUserIDs(reminder))
	assert.ElementsMatch(t, []string{"user-a", "user-b"}, settingsUserIDs(lowStock))
}

func settingsUserIDs(list []domain.ReminderSettings) []string {
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.UserID)
	}
	return ids
}

func TestMedicationCRUD(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Now()

	m := &domain.Medication{
		ID:               "med-1",
		UserID:           "user-a",
		Name:             "ビタミンD",
		DosePerTime:      1,
		Frequency:        []string{domain.SessionMorning, domain.SessionEvening},
		PrescriptionDays: 14,
		TotalPills:       28,
		RemainingPills:   28,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, repo.CreateMedication(ctx, m))

	list, err := repo.ListMedications(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{domain.SessionMorning, domain.SessionEvening}, list[0].Frequency)

	m.RecordTaken(now)
	require.NoError(t, repo.UpdateMedication(ctx, m))

	got, err := repo.GetMedication(ctx, "med-1")
	require.NoError(t, err)
	assert.Equal(t, 27.0, got.RemainingPills)
	assert.Equal(t, 1, got.TakenCount)

	require.NoError(t, repo.SetLowAlerted(ctx, "med-1", true))
	got, err = repo.GetMedication(ctx, "med-1")
	require.NoError(t, err)
	assert.True(t, got.LowAlerted)

	require.NoError(t, repo.DeleteMedication(ctx, "med-1"))
	_, err = repo.GetMedication(ctx, "med-1")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.UpdateMedication(ctx, m)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinkLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Now()

	require.NoError(t, repo.SaveLink(ctx, &domain.Link{ChatID: 42, UserID: "user-a", LinkedAt: now}))

	byChat, err := repo.LinkByChat(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "user-a", byChat.UserID)

	byUser, err := repo.LinkByUser(ctx, "user-a")
	require.NoError(t, err)
	assert.Equal(t, int64(42), byUser.ChatID)

	// Relinking the same chat to another account replaces the row.
	require.NoError(t, repo.SaveLink(ctx, &domain.Link{ChatID: 42, UserID: "user-b", LinkedAt: now}))
	byChat, err = repo.LinkByChat(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "user-b", byChat.UserID)

	require.NoError(t, repo.DeleteLinkByChat(ctx, 42))
	_, err = repo.LinkByChat(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	// Idempotent delete.
	require.NoError(t, repo.DeleteLinkByChat(ctx, 42))
}
