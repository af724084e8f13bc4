package domain

import "time"

// Conventional session labels. The reminder-times map is open: any string key
// a client writes is scanned, these are only the defaults the app seeds.
const (
	SessionMorning  = "朝"
	SessionNoon     = "昼"
	SessionEvening  = "晩"
	SessionBedtime  = "就寝前"
	SessionAsNeeded = "頓服"
)

// ReminderSettings is a user's per-session reminder schedule plus the two
// independent notification toggles.
type ReminderSettings struct {
	UserID                string
	ReminderTimes         map[string]string // session label -> "HH:MM"
	NotificationsEnabled  bool
	LowStockAlertsEnabled bool
	LinkCode              string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// DefaultSettings returns the settings seeded on a user's first access.
// Notifications start enabled with the usual four sessions; 頓服 has no
// scheduled time by default.
func DefaultSettings(userID, linkCode string, now time.Time) *ReminderSettings {
	return &ReminderSettings{
		UserID: userID,
		ReminderTimes: map[string]string{
			SessionMorning: "08:00",
			SessionNoon:    "12:00",
			SessionEvening: "19:00",
			SessionBedtime: "22:00",
		},
		NotificationsEnabled:  true,
		LowStockAlertsEnabled: true,
		LinkCode:              linkCode,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}
