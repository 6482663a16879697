package clinic

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is a bookable provider in the clinic directory.
type Doctor struct {
	ID          string
	Name        string
	Specialty   string
	FeeCents    int
	DayStart    string // first bookable slot, "15:04" 24h clock
	DayEnd      string // end of working day, exclusive
	SlotMinutes int
}

// Patient is the read-only profile the assistant needs for greetings and
// booking preconditions.
type Patient struct {
	ID       string
	UserID   string
	Name     string
	Email    string
	Phone    string
	Language string // "en" or "ar"
}

// Appointment statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Appointment is the terminal artifact of a completed booking flow.
type Appointment struct {
	ID        uuid.UUID
	DoctorID  string
	PatientID string
	Date      time.Time // calendar date, midnight UTC
	StartTime string    // "15:04"
	EndTime   string    // "15:04"
	FeeCents  int
	Status    string
	CreatedAt time.Time
}
