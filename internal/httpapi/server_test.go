package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dokkiitech/okusuri/internal/domain"
	"github.com/dokkiitech/okusuri/internal/store"
)

func newTestServer(t *testing.T) (http.Handler, store.Repo) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return NewServer(repo, zap.NewNop()).Routes(), repo
}

func doJSON(t *testing.T, h http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMissingUserIdentity(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/api/settings/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSettingsSeededOnFirstAccess(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/settings/", "user-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp settingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user-a", resp.UserID)
	assert.True(t, resp.NotificationsEnabled)
	assert.NotEmpty(t, resp.LinkCode)
	assert.Equal(t, "08:00", resp.ReminderTimes[domain.SessionMorning])
}

func TestUpdateSettings_RejectsBadTime(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPut, "/api/settings/", "user-a", map[string]any{
		"reminderTimes": map[string]string{domain.SessionMorning: "25:00"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSettings_NormalizesTimes(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPut, "/api/settings/", "user-a", map[string]any{
		"reminderTimes":         map[string]string{domain.SessionMorning: "8:30"},
		"lowStockAlertsEnabled": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp settingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "08:30", resp.ReminderTimes[domain.SessionMorning])
	assert.False(t, resp.LowStockAlertsEnabled)
	assert.True(t, resp.NotificationsEnabled)
}

func TestRegenerateLinkCode(t *testing.T) {
	h, _ := newTestServer(t)

	first := doJSON(t, h, http.MethodGet, "/api/settings/", "user-a", nil)
	var before settingsResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &before))

	rec := doJSON(t, h, http.MethodPost, "/api/settings/link-code", "user-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["linkCode"])
	assert.NotEqual(t, before.LinkCode, resp["linkCode"])
}

func createMedication(t *testing.T, h http.Handler, userID string) medicationResponse {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/medications/", userID, map[string]any{
		"name":             "ロキソニン",
		"dosePerTime":      1,
		"frequency":        []string{domain.SessionMorning, domain.SessionEvening},
		"prescriptionDays": 14,
		"totalPills":       28,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp medicationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestMedicationLifecycle(t *testing.T) {
	h, _ := newTestServer(t)
	med := createMedication(t, h, "user-a")
	assert.Equal(t, 28.0, med.RemainingPills)
	require.NotNil(t, med.RemainingDays)
	assert.Equal(t, 14.0, *med.RemainingDays)

	rec := doJSON(t, h, http.MethodPost, "/api/medications/"+med.ID+"/take", "user-a",
		map[string]string{"session": domain.SessionMorning})
	require.Equal(t, http.StatusOK, rec.Code)
	var taken medicationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &taken))
	assert.Equal(t, 27.0, taken.RemainingPills)
	assert.Equal(t, 1, taken.TakenCount)

	rec = doJSON(t, h, http.MethodPost, "/api/medications/"+med.ID+"/refill", "user-a",
		map[string]int{"days": 7})
	require.Equal(t, http.StatusOK, rec.Code)
	var refilled medicationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refilled))
	assert.Equal(t, 21, refilled.PrescriptionDays)
	assert.Equal(t, 41.0, refilled.RemainingPills) // 27 + 7*2

	rec = doJSON(t, h, http.MethodDelete, "/api/medications/"+med.ID+"/", "user-a", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/medications/"+med.ID+"/", "user-a", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMedicationOwnershipEnforced(t *testing.T) {
	h, _ := newTestServer(t)
	med := createMedication(t, h, "user-a")

	rec := doJSON(t, h, http.MethodGet, "/api/medications/"+med.ID+"/", "user-b", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateMedication_Validation(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/medications/", "user-a", map[string]any{
		"name":        "",
		"dosePerTime": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
