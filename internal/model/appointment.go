package model

import "time"

// KeySeparator joins location and appointmentTime into the slot key.
const KeySeparator = "#"

// Appointment is a scheduled service booking. JSON names are part of the
// public API contract and must not change.
type Appointment struct {
	ID              string    `json:"id"`
	FullName        string    `json:"fullName"`
	Location        string    `json:"location"`
	Car             string    `json:"car"`
	AppointmentTime string    `json:"appointmentTime"`
	Services        []string  `json:"services"`
	LocationTimeKey string    `json:"locationTimeKey"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// LocationTimeKey derives the soft-uniqueness discriminator for a booking
// slot. The raw appointmentTime string is used, not a normalized form, so
// callers must submit consistent formatting for conflicts to be detected.
func LocationTimeKey(location, appointmentTime string) string {
	return location + KeySeparator + appointmentTime
}
