package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/dokkiitech/okusuri/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- Reminder settings ---

const settingsColumns = `user_id, reminder_times, notifications_enabled,
	low_stock_alerts_enabled, link_code, created_at, updated_at`

func scanSettings(row interface{ Scan(...any) error }) (*domain.ReminderSettings, error) {
	var (
		userID    string
		timesJSON string
		notifInt  int
		lowInt    int
		linkCode  string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&userID, &timesJSON, &notifInt, &lowInt, &linkCode, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return &domain.ReminderSettings{
		UserID:                userID,
		ReminderTimes:         unmarshalTimes(timesJSON),
		NotificationsEnabled:  notifInt != 0,
		LowStockAlertsEnabled: lowInt != 0,
		LinkCode:              linkCode,
		CreatedAt:             unixUTC(createdAt),
		UpdatedAt:             unixUTC(updatedAt),
	}, nil
}

// GetSettings returns a user's reminder settings or ErrNotFound.
func (r *SQLiteRepo) GetSettings(ctx context.Context, userID string) (*domain.ReminderSettings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM user_settings WHERE user_id = ?`, userID)
	s, err := scanSettings(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// UpsertSettings inserts or updates a user's reminder settings.
func (r *SQLiteRepo) UpsertSettings(ctx context.Context, s *domain.ReminderSettings) error {
	if s == nil {
		return errors.New("nil settings")
	}
	now := time.Now().UTC().Unix()
	created := s.CreatedAt.UTC().Unix()
	if created <= 0 {
		created = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_settings (
			user_id, reminder_times, notifications_enabled,
			low_stock_alerts_enabled, link_code, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			reminder_times           = excluded.reminder_times,
			notifications_enabled    = excluded.notifications_enabled,
			low_stock_alerts_enabled = excluded.low_stock_alerts_enabled,
			link_code                = excluded.link_code,
			updated_at               = excluded.updated_at`,
		s.UserID, marshalTimes(s.ReminderTimes), boolToInt(s.NotificationsEnabled),
		boolToInt(s.LowStockAlertsEnabled), s.LinkCode, created, now,
	)
	return err
}

// FindSettingsByLinkCode resolves a link code to the settings row that owns it.
func (r *SQLiteRepo) FindSettingsByLinkCode(ctx context.Context, code string) (*domain.ReminderSettings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM user_settings WHERE link_code = ? LIMIT 1`, code)
	s, err := scanSettings(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (r *SQLiteRepo) listSettingsWhere(ctx context.Context, flagColumn string) ([]domain.ReminderSettings, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+settingsColumns+` FROM user_settings WHERE `+flagColumn+` = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.ReminderSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *s)
	}
	return res, rows.Err()
}

// ListReminderEnabled returns all settings with reminder notifications on.
func (r *SQLiteRepo) ListReminderEnabled(ctx context.Context) ([]domain.ReminderSettings, error) {
	return r.listSettingsWhere(ctx, "notifications_enabled")
}

// ListLowStockEnabled returns all settings with low-supply alerts on.
func (r *SQLiteRepo) ListLowStockEnabled(ctx context.Context) ([]domain.ReminderSettings, error) {
	return r.listSettingsWhere(ctx, "low_stock_alerts_enabled")
}

// --- Medications ---

const medicationColumns = `id, user_id, name, dose_per_time, frequency,
	prescription_days, total_pills, remaining_pills, taken_count, low_alerted,
	created_at, updated_at`

func scanMedication(row interface{ Scan(...any) error }) (*domain.Medication, error) {
	var (
		id, userID, name string
		dose             float64
		freqJSON         string
		days             int
		total, remaining float64
		taken            int
		lowInt           int
		createdAt        int64
		updatedAt        int64
	)
	if err := row.Scan(&id, &userID, &name, &dose, &freqJSON, &days,
		&total, &remaining, &taken, &lowInt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return &domain.Medication{
		ID:               id,
		UserID:           userID,
		Name:             name,
		DosePerTime:      dose,
		Frequency:        unmarshalFrequency(freqJSON),
		PrescriptionDays: days,
		TotalPills:       total,
		RemainingPills:   remaining,
		TakenCount:       taken,
		LowAlerted:       lowInt != 0,
		CreatedAt:        unixUTC(createdAt),
		UpdatedAt:        unixUTC(updatedAt),
	}, nil
}

// CreateMedication inserts a new medication row.
func (r *SQLiteRepo) CreateMedication(ctx context.Context, m *domain.Medication) error {
	if m == nil {
		return errors.New("nil medication")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medications (
			id, user_id, name, dose_per_time, frequency, prescription_days,
			total_pills, remaining_pills, taken_count, low_alerted,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Name, m.DosePerTime, marshalFrequency(m.Frequency),
		m.PrescriptionDays, m.TotalPills, m.RemainingPills, m.TakenCount,
		boolToInt(m.LowAlerted), m.CreatedAt.UTC().Unix(), m.UpdatedAt.UTC().Unix(),
	)
	return err
}

// GetMedication returns one medication by id or ErrNotFound.
func (r *SQLiteRepo) GetMedication(ctx context.Context, id string) (*domain.Medication, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+medicationColumns+` FROM medications WHERE id = ?`, id)
	m, err := scanMedication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// ListMedications returns all medications owned by a user.
func (r *SQLiteRepo) ListMedications(ctx context.Context, userID string) ([]domain.Medication, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+medicationColumns+` FROM medications WHERE user_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *m)
	}
	return res, rows.Err()
}

// UpdateMedication writes back a full medication row.
func (r *SQLiteRepo) UpdateMedication(ctx context.Context, m *domain.Medication) error {
	if m == nil {
		return errors.New("nil medication")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE medications SET
			name = ?, dose_per_time = ?, frequency = ?, prescription_days = ?,
			total_pills = ?, remaining_pills = ?, taken_count = ?, low_alerted = ?,
			updated_at = ?
		WHERE id = ?`,
		m.Name, m.DosePerTime, marshalFrequency(m.Frequency), m.PrescriptionDays,
		m.TotalPills, m.RemainingPills, m.TakenCount, boolToInt(m.LowAlerted),
		time.Now().UTC().Unix(), m.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMedication removes a medication row.
func (r *SQLiteRepo) DeleteMedication(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE id = ?`, id)
	return err
}

// SetLowAlerted records whether a low-supply alert was already sent for the
// current below-threshold episode.
func (r *SQLiteRepo) SetLowAlerted(ctx context.Context, id string, alerted bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE medications SET low_alerted = ? WHERE id = ?`, boolToInt(alerted), id)
	return err
}

// --- Links ---

// SaveLink creates or replaces the link for a chat. chat_id is the primary
// key, so one external identity links to at most one account.
func (r *SQLiteRepo) SaveLink(ctx context.Context, l *domain.Link) error {
	if l == nil {
		return errors.New("nil link")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO links (chat_id, user_id, linked_at) VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			user_id   = excluded.user_id,
			linked_at = excluded.linked_at`,
		l.ChatID, l.UserID, l.LinkedAt.UTC().Unix(),
	)
	return err
}

// LinkByChat resolves a Telegram chat to its link or ErrNotFound.
func (r *SQLiteRepo) LinkByChat(ctx context.Context, chatID int64) (*domain.Link, error) {
	return r.scanLink(r.db.QueryRowContext(ctx,
		`SELECT chat_id, user_id, linked_at FROM links WHERE chat_id = ?`, chatID))
}

// LinkByUser is the reverse lookup used by outbound sends: app user to chat,
// limited to one match.
func (r *SQLiteRepo) LinkByUser(ctx context.Context, userID string) (*domain.Link, error) {
	return r.scanLink(r.db.QueryRowContext(ctx,
		`SELECT chat_id, user_id, linked_at FROM links WHERE user_id = ? LIMIT 1`, userID))
}

func (r *SQLiteRepo) scanLink(row *sql.Row) (*domain.Link, error) {
	var (
		chatID   int64
		userID   string
		linkedAt int64
	)
	if err := row.Scan(&chatID, &userID, &linkedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &domain.Link{ChatID: chatID, UserID: userID, LinkedAt: unixUTC(linkedAt)}, nil
}

// DeleteLinkByChat removes a link. Deleting an absent link is not an error,
// so the self-healing cleanup stays idempotent.
func (r *SQLiteRepo) DeleteLinkByChat(ctx context.Context, chatID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE chat_id = ?`, chatID)
	return err
}
