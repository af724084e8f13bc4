package store

import (
	"context"
	"errors"

	"github.com/dokkiitech/okusuri/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Repo defines storage operations for settings, medications and links.
type Repo interface {
	// Reminder settings.
	GetSettings(ctx context.Context, userID string) (*domain.ReminderSettings, error)
	UpsertSettings(ctx context.Context, s *domain.ReminderSettings) error
	FindSettingsByLinkCode(ctx context.Context, code string) (*domain.ReminderSettings, error)
	// The two scheduler scans are independent queries: a user may enable one
	// notification class without the other.
	ListReminderEnabled(ctx context.Context) ([]domain.ReminderSettings, error)
	ListLowStockEnabled(ctx context.Context) ([]domain.ReminderSettings, error)

	// Medications.
	CreateMedication(ctx context.Context, m *domain.Medication) error
	GetMedication(ctx context.Context, id string) (*domain.Medication, error)
	ListMedications(ctx context.Context, userID string) ([]domain.Medication, error)
	UpdateMedication(ctx context.Context, m *domain.Medication) error
	DeleteMedication(ctx context.Context, id string) error
	SetLowAlerted(ctx context.Context, id string, alerted bool) error

	// Notification links.
	SaveLink(ctx context.Context, l *domain.Link) error
	LinkByChat(ctx context.Context, chatID int64) (*domain.Link, error)
	LinkByUser(ctx context.Context, userID string) (*domain.Link, error)
	DeleteLinkByChat(ctx context.Context, chatID int64) error

	Close() error
}
