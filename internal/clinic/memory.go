package clinic

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// InMemoryDirectory implements the repository interfaces with in-process maps.
// Used for development and tests; availability follows the same working-window
// computation as the Postgres store.
type InMemoryDirectory struct {
	mu           sync.RWMutex
	doctors      map[string]Doctor
	doctorOrder  []string
	patients     map[string]Patient // keyed by user id
	appointments []Appointment
	failCreate   error // test hook
}

// NewInMemoryDirectory creates an empty in-memory directory.
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		doctors:  make(map[string]Doctor),
		patients: make(map[string]Patient),
	}
}

// AddDoctor registers a doctor.
func (d *InMemoryDirectory) AddDoctor(doc Doctor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.doctors[doc.ID]; !exists {
		d.doctorOrder = append(d.doctorOrder, doc.ID)
	}
	d.doctors[doc.ID] = doc
}

// AddPatient registers a patient profile.
func (d *InMemoryDirectory) AddPatient(p Patient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.patients[p.UserID] = p
}

// FailNextCreate makes Create return the given error, for failure-path tests.
func (d *InMemoryDirectory) FailNextCreate(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failCreate = err
}

func (d *InMemoryDirectory) Get(_ context.Context, id string) (*Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.doctors[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (d *InMemoryDirectory) FindBySpecialty(_ context.Context, specialty string) ([]Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := []Doctor{}
	for _, id := range d.doctorOrder {
		doc := d.doctors[id]
		if strings.EqualFold(doc.Specialty, specialty) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *InMemoryDirectory) AvailableSlots(_ context.Context, doctorID string, date time.Time) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.doctors[doctorID]
	if !ok {
		return nil, fmt.Errorf("clinic: unknown doctor %s", doctorID)
	}
	booked := map[string]struct{}{}
	day := date.Format("2006-01-02")
	for _, appt := range d.appointments {
		if appt.DoctorID == doctorID && appt.Date.Format("2006-01-02") == day && appt.Status != StatusCancelled {
			booked[appt.StartTime] = struct{}{}
		}
	}
	return openSlots(&doc, booked), nil
}

func (d *InMemoryDirectory) GetProfile(_ context.Context, userID string) (*Patient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.patients[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (d *InMemoryDirectory) Create(_ context.Context, appt *Appointment) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCreate != nil {
		err := d.failCreate
		d.failCreate = nil
		return err
	}
	d.appointments = append(d.appointments, *appt)
	return nil
}

// Appointments returns a snapshot of all stored appointments.
func (d *InMemoryDirectory) Appointments() []Appointment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Appointment, len(d.appointments))
	copy(out, d.appointments)
	return out
}

// SeedDemoData fills the directory with a small demo roster.
func (d *InMemoryDirectory) SeedDemoData() {
	d.AddDoctor(Doctor{ID: "doc-cardio-1", Name: "Dr. Layla Hassan", Specialty: "Cardiology", FeeCents: 15000, DayStart: "09:00", DayEnd: "14:00", SlotMinutes: 30})
	d.AddDoctor(Doctor{ID: "doc-derm-1", Name: "Dr. Omar Said", Specialty: "Dermatology", FeeCents: 12000, DayStart: "10:00", DayEnd: "16:00", SlotMinutes: 30})
	d.AddDoctor(Doctor{ID: "doc-neuro-1", Name: "Dr. Sara Nabil", Specialty: "Neurology", FeeCents: 18000, DayStart: "09:00", DayEnd: "13:00", SlotMinutes: 45})
	d.AddDoctor(Doctor{ID: "doc-ortho-1", Name: "Dr. Karim Adel", Specialty: "Orthopedics", FeeCents: 14000, DayStart: "12:00", DayEnd: "18:00", SlotMinutes: 30})
	d.AddPatient(Patient{ID: "pat-1", UserID: "demo-user", Name: "Nour Ahmed", Email: "nour@example.com", Phone: "+201000000000", Language: "ar"})
}
