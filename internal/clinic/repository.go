package clinic

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DoctorRepository exposes the doctor directory and availability lookups.
type DoctorRepository interface {
	Get(ctx context.Context, id string) (*Doctor, error)
	FindBySpecialty(ctx context.Context, specialty string) ([]Doctor, error)
	AvailableSlots(ctx context.Context, doctorID string, date time.Time) ([]string, error)
}

// PatientRepository is the read-only patient profile lookup.
type PatientRepository interface {
	GetProfile(ctx context.Context, userID string) (*Patient, error)
}

// AppointmentRepository persists completed bookings.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *Appointment) error
}

// Store is the PostgreSQL-backed clinic directory.
type Store struct {
	db *sql.DB
}

// NewStore creates a clinic store over the provided database handle.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// Get returns the doctor with the given id, or nil if none exists.
func (s *Store) Get(ctx context.Context, id string) (*Doctor, error) {
	var d Doctor
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, specialty, fee_cents, day_start, day_end, slot_minutes
		FROM doctors WHERE id = $1`, id).Scan(
		&d.ID, &d.Name, &d.Specialty, &d.FeeCents, &d.DayStart, &d.DayEnd, &d.SlotMinutes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get doctor: %w", err)
	}
	return &d, nil
}

// FindBySpecialty lists doctors for a specialty ordered by name.
func (s *Store) FindBySpecialty(ctx context.Context, specialty string) ([]Doctor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, specialty, fee_cents, day_start, day_end, slot_minutes
		FROM doctors WHERE LOWER(specialty) = LOWER($1) ORDER BY name`, specialty)
	if err != nil {
		return nil, fmt.Errorf("clinic: find doctors: %w", err)
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialty, &d.FeeCents, &d.DayStart, &d.DayEnd, &d.SlotMinutes); err != nil {
			return nil, fmt.Errorf("clinic: scan doctor: %w", err)
		}
		out = append(out, d)
	}
	if out == nil {
		out = []Doctor{}
	}
	return out, rows.Err()
}

// AvailableSlots computes the open slots for a doctor on a date: the doctor's
// working window split into slot-sized starts, minus already-booked times.
func (s *Store) AvailableSlots(ctx context.Context, doctorID string, date time.Time) ([]string, error) {
	doctor, err := s.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, fmt.Errorf("clinic: unknown doctor %s", doctorID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT start_time FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND status <> $3`,
		doctorID, date.Format("2006-01-02"), StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("clinic: list booked slots: %w", err)
	}
	defer rows.Close()

	booked := map[string]struct{}{}
	for rows.Next() {
		var start string
		if err := rows.Scan(&start); err != nil {
			return nil, fmt.Errorf("clinic: scan booked slot: %w", err)
		}
		booked[start] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return openSlots(doctor, booked), nil
}

// GetProfile returns the patient profile for a user id, or nil if none exists.
func (s *Store) GetProfile(ctx context.Context, userID string) (*Patient, error) {
	var p Patient
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, email, phone, language
		FROM patients WHERE user_id = $1`, userID).Scan(
		&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone, &p.Language)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get patient: %w", err)
	}
	return &p, nil
}

// Create inserts an appointment record.
func (s *Store) Create(ctx context.Context, appt *Appointment) error {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	if appt.Status == "" {
		appt.Status = StatusPending
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, date, start_time, end_time, fee_cents, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		appt.ID, appt.DoctorID, appt.PatientID, appt.Date.Format("2006-01-02"),
		appt.StartTime, appt.EndTime, appt.FeeCents, appt.Status, appt.CreatedAt)
	if err != nil {
		return fmt.Errorf("clinic: create appointment: %w", err)
	}
	return nil
}

// openSlots expands the doctor's working window into slot starts and removes
// the booked ones, preserving chronological order.
func openSlots(doctor *Doctor, booked map[string]struct{}) []string {
	start, err := time.Parse("15:04", doctor.DayStart)
	if err != nil {
		return []string{}
	}
	end, err := time.Parse("15:04", doctor.DayEnd)
	if err != nil {
		return []string{}
	}
	step := time.Duration(doctor.SlotMinutes) * time.Minute
	if step <= 0 {
		step = 30 * time.Minute
	}

	slots := []string{}
	for t := start; t.Before(end); t = t.Add(step) {
		slot := t.Format("15:04")
		if _, taken := booked[slot]; taken {
			continue
		}
		slots = append(slots, slot)
	}
	return slots
}

// EndTimeFor returns the slot end for a start time given the doctor's slot length.
func EndTimeFor(doctor *Doctor, start string) string {
	t, err := time.Parse("15:04", start)
	if err != nil {
		return start
	}
	step := time.Duration(doctor.SlotMinutes) * time.Minute
	if step <= 0 {
		step = 30 * time.Minute
	}
	return t.Add(step).Format("15:04")
}
