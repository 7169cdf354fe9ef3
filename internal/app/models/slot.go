package models

import "time"

// Slot is the bookable time window an appointment holds. The payment core
// only toggles availability; schedule generation lives elsewhere.
type Slot struct {
	ID        string
	DoctorID  string
	Start     time.Time
	End       time.Time
	Available bool
	UpdatedAt time.Time
}
