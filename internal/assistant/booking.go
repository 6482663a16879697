package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/clinicware/assistant-platform/internal/clinic"
	"github.com/clinicware/assistant-platform/internal/notify"
	"github.com/clinicware/assistant-platform/internal/observability/metrics"
	"github.com/clinicware/assistant-platform/pkg/logging"
)

const dateLayout = "2006-01-02"

// Accepted time layouts for slot replies. Slots are always rendered as 15:04,
// but users paste all sorts of things.
var timeLayouts = []string{"15:04", "3:04 PM", "3:04PM", "15.04"}

var confirmTokens = []string{"confirm", "yes", "book", "تأكيد", "نعم"}
var cancelTokens = []string{"cancel", "stop", "no", "إلغاء", "لا"}

// BookingFlow drives the appointment dialogue: date, then time, then an
// explicit confirmation. Each step validates its input and re-prompts without
// advancing when validation fails.
type BookingFlow struct {
	doctors      clinic.DoctorRepository
	patients     clinic.PatientRepository
	appointments clinic.AppointmentRepository
	notifier     notify.EmailSender
	sessions     *SessionStore
	metrics      *metrics.AssistantMetrics
	logger       *logging.Logger
	now          func() time.Time
}

// NewBookingFlow wires the booking dialogue. notifier may be nil.
func NewBookingFlow(
	doctors clinic.DoctorRepository,
	patients clinic.PatientRepository,
	appointments clinic.AppointmentRepository,
	notifier notify.EmailSender,
	sessions *SessionStore,
	m *metrics.AssistantMetrics,
	logger *logging.Logger,
) *BookingFlow {
	if logger == nil {
		logger = logging.Default()
	}
	if notifier == nil {
		notifier = notify.NoopSender{}
	}
	return &BookingFlow{
		doctors:      doctors,
		patients:     patients,
		appointments: appointments,
		notifier:     notifier,
		sessions:     sessions,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

// Start checks the preconditions and opens a booking session at the date step.
// No session is created when a precondition fails.
func (f *BookingFlow) Start(ctx context.Context, userID, doctorID, lang string) Reply {
	doctor, err := f.doctors.Get(ctx, doctorID)
	if err != nil {
		f.logger.Error("booking: doctor lookup failed", "doctor_id", doctorID, "error", err)
		return Reply{Response: msgApology.in(lang)}
	}
	if doctor == nil {
		return Reply{Response: msgDoctorNotFound.in(lang)}
	}

	patient, err := f.patients.GetProfile(ctx, userID)
	if err != nil {
		f.logger.Error("booking: patient lookup failed", "user_id", userID, "error", err)
		return Reply{Response: msgApology.in(lang)}
	}
	if patient == nil {
		return Reply{Response: msgCompleteProfile.in(lang)}
	}

	f.sessions.With(userID, func(_ *Session) *Session {
		s := f.sessions.NewSession(userID, lang)
		s.Step = StepSelectDate
		s.DoctorID = doctor.ID
		s.PatientID = patient.ID
		return s
	})

	f.logger.Info("booking started", "user_id", userID, "doctor_id", doctorID)
	return Reply{Response: fmt.Sprintf(msgAskDate.in(lang), doctor.Name)}
}

// Handle advances the dialogue one message. Called only while a session is
// active; the session store serializes calls per user.
func (f *BookingFlow) Handle(ctx context.Context, userID, message string) Reply {
	var reply Reply
	f.sessions.With(userID, func(s *Session) *Session {
		if s == nil {
			reply = Reply{Response: msgApology.in(detectLanguage(message))}
			return nil
		}
		s.History.Append(ChatMessage{Role: ChatRoleUser, Content: message})

		var next *Session
		switch s.Step {
		case StepSelectDate:
			reply, next = f.handleDate(ctx, s, message)
		case StepSelectTime:
			reply, next = f.handleTime(ctx, s, message)
		case StepConfirm:
			reply, next = f.handleConfirm(ctx, s, message)
		default:
			reply = Reply{Response: msgApology.in(s.Language)}
			next = nil
		}
		if next != nil {
			next.History.Append(ChatMessage{Role: ChatRoleAssistant, Content: reply.Response})
		}
		return next
	})
	return reply
}

func (f *BookingFlow) handleDate(ctx context.Context, s *Session, message string) (Reply, *Session) {
	lang := s.Language
	date, err := time.Parse(dateLayout, strings.TrimSpace(message))
	if err != nil {
		return Reply{Response: msgBadDate.in(lang)}, s
	}

	// "Today" is the server's calendar day, not a UTC 24h truncation: shortly
	// after local midnight the two disagree in zones ahead of UTC.
	y, mo, d := f.now().Date()
	today := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return Reply{Response: msgPastDate.in(lang)}, s
	}

	slots, err := f.doctors.AvailableSlots(ctx, s.DoctorID, date)
	if err != nil {
		f.logger.Error("booking: availability lookup failed", "doctor_id", s.DoctorID, "error", err)
		return Reply{Response: msgApology.in(lang)}, s
	}
	if len(slots) == 0 {
		return Reply{Response: msgNoSlots.in(lang)}, s
	}

	s.Date = date
	s.Step = StepSelectTime
	prompt := fmt.Sprintf(msgAskTime.in(lang), date.Format(dateLayout), formatSlotList(slots))
	return Reply{Response: prompt, Suggestions: slots}, s
}

func (f *BookingFlow) handleTime(ctx context.Context, s *Session, message string) (Reply, *Session) {
	lang := s.Language
	slot, ok := parseSlot(message)
	if !ok {
		return Reply{Response: msgBadTime.in(lang)}, s
	}

	// Recompute availability at validation time: another user may have taken
	// the slot since it was offered.
	slots, err := f.doctors.AvailableSlots(ctx, s.DoctorID, s.Date)
	if err != nil {
		f.logger.Error("booking: availability lookup failed", "doctor_id", s.DoctorID, "error", err)
		return Reply{Response: msgApology.in(lang)}, s
	}
	if !containsSlot(slots, slot) {
		if len(slots) == 0 {
			// The whole day filled up between offer and answer. Steps never
			// move backwards, so the dialogue ends instead of re-asking for
			// a date.
			f.logger.Info("booking ended, offered day filled up", "user_id", s.UserID, "doctor_id", s.DoctorID)
			return Reply{Response: msgDayFull.in(lang)}, nil
		}
		return Reply{
			Response:    fmt.Sprintf(msgSlotTaken.in(lang), formatSlotList(slots)),
			Suggestions: slots,
		}, s
	}

	doctor, err := f.doctors.Get(ctx, s.DoctorID)
	if err != nil || doctor == nil {
		f.logger.Error("booking: doctor lookup failed", "doctor_id", s.DoctorID, "error", err)
		return Reply{Response: msgApology.in(lang)}, s
	}

	s.TimeSlot = slot
	s.Step = StepConfirm
	summary := fmt.Sprintf(msgConfirmSummary.in(lang),
		doctor.Name, doctor.Specialty, s.Date.Format(dateLayout), slot, formatFee(doctor.FeeCents))
	return Reply{Response: summary}, s
}

func (f *BookingFlow) handleConfirm(ctx context.Context, s *Session, message string) (Reply, *Session) {
	lang := s.Language
	text := strings.ToLower(strings.TrimSpace(message))

	switch {
	case matchToken(text, cancelTokens):
		if f.metrics != nil {
			f.metrics.ObserveBooking("cancelled")
		}
		f.logger.Info("booking cancelled", "user_id", s.UserID)
		return Reply{Response: msgBookingCancelled.in(lang)}, nil

	case matchToken(text, confirmTokens):
		return f.complete(ctx, s)

	default:
		return Reply{Response: msgConfirmReprompt.in(lang)}, s
	}
}

func (f *BookingFlow) complete(ctx context.Context, s *Session) (Reply, *Session) {
	lang := s.Language
	doctor, err := f.doctors.Get(ctx, s.DoctorID)
	if err != nil || doctor == nil {
		f.logger.Error("booking: doctor lookup failed at confirm", "doctor_id", s.DoctorID, "error", err)
		return Reply{Response: msgBookingFailed.in(lang)}, s
	}

	appt := &clinic.Appointment{
		ID:        uuid.New(),
		DoctorID:  s.DoctorID,
		PatientID: s.PatientID,
		Date:      s.Date,
		StartTime: s.TimeSlot,
		EndTime:   clinic.EndTimeFor(doctor, s.TimeSlot),
		FeeCents:  doctor.FeeCents,
		Status:    clinic.StatusPending,
		CreatedAt: f.now(),
	}

	// Persistence failure keeps the session at the confirm step so the user
	// can simply retry.
	if err := f.appointments.Create(ctx, appt); err != nil {
		f.logger.Error("booking: create appointment failed", "user_id", s.UserID, "error", err)
		if f.metrics != nil {
			f.metrics.ObserveBooking("failed")
		}
		return Reply{Response: msgBookingFailed.in(lang)}, s
	}

	if f.metrics != nil {
		f.metrics.ObserveBooking("completed")
	}
	f.logger.Info("booking completed",
		"user_id", s.UserID, "doctor_id", s.DoctorID,
		"date", s.Date.Format(dateLayout), "time", s.TimeSlot)

	f.sendConfirmation(ctx, s, doctor)

	done := fmt.Sprintf(msgBooked.in(lang), doctor.Name, s.Date.Format(dateLayout), s.TimeSlot)
	return Reply{Response: done}, nil
}

func (f *BookingFlow) sendConfirmation(ctx context.Context, s *Session, doctor *clinic.Doctor) {
	patient, err := f.patients.GetProfile(ctx, s.UserID)
	if err != nil || patient == nil || patient.Email == "" {
		return
	}
	msg := notify.EmailMessage{
		To:      patient.Email,
		ToName:  patient.Name,
		Subject: "Appointment confirmation",
		Body: fmt.Sprintf("Your appointment with %s (%s) on %s at %s is booked and pending confirmation.",
			doctor.Name, doctor.Specialty, s.Date.Format(dateLayout), s.TimeSlot),
	}
	// Notification failure never fails the booking.
	if err := f.notifier.Send(ctx, msg); err != nil {
		f.logger.Error("booking: confirmation email failed", "user_id", s.UserID, "error", err)
	}
}

func parseSlot(message string) (string, bool) {
	raw := strings.TrimSpace(message)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(raw)); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}

func containsSlot(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}

// matchToken reports whether any whole word of the message equals one of the
// tokens. Whole words let "please confirm" book while keeping short tokens
// like "no" and "لا" from firing inside longer words.
func matchToken(message string, tokens []string) bool {
	words := strings.FieldsFunc(message, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		for _, t := range tokens {
			if w == t {
				return true
			}
		}
	}
	return false
}
