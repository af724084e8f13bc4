package domain

import (
	"math"
	"time"
)

// Medication is one prescribed drug owned by a user.
type Medication struct {
	ID               string
	UserID           string
	Name             string
	DosePerTime      float64  // pills per administration
	Frequency        []string // session labels at which it is taken
	PrescriptionDays int
	TotalPills       float64
	RemainingPills   float64 // clamped at zero, never negative
	TakenCount       int
	LowAlerted       bool // set after a low-supply alert, cleared on replenish
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DailyIntake is the number of pills consumed per day when every scheduled
// session is taken.
func (m *Medication) DailyIntake() float64 {
	return float64(len(m.Frequency)) * m.DosePerTime
}

// RemainingDays returns how many days of supply are left and whether the
// value is defined. A medication with no sessions or a zero dose has no
// meaningful daily intake and is skipped by the low-supply pass.
func (m *Medication) RemainingDays() (float64, bool) {
	intake := m.DailyIntake()
	if intake <= 0 {
		return 0, false
	}
	return m.RemainingPills / intake, true
}

// RemainingDaysCeil is the user-facing whole-day count ("残り約N日分").
func (m *Medication) RemainingDaysCeil() (int, bool) {
	days, ok := m.RemainingDays()
	if !ok {
		return 0, false
	}
	return int(math.Ceil(days)), true
}

// RecordTaken applies one "taken" event: remaining stock drops by one dose
// (clamped at zero) and the cumulative counter advances.
func (m *Medication) RecordTaken(now time.Time) {
	m.RemainingPills -= m.DosePerTime
	if m.RemainingPills < 0 {
		m.RemainingPills = 0
	}
	m.TakenCount++
	m.UpdatedAt = now
}

// Refill extends the prescription additively: days of prescription plus the
// pills those days represent.
func (m *Medication) Refill(days int, now time.Time) {
	if days <= 0 {
		return
	}
	m.PrescriptionDays += days
	added := float64(days) * m.DailyIntake()
	m.TotalPills += added
	m.RemainingPills += added
	m.UpdatedAt = now
}
