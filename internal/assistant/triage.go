package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicware/assistant-platform/internal/clinic"
	"github.com/clinicware/assistant-platform/pkg/logging"
)

// Urgency tiers, least severe first.
type Urgency int

const (
	UrgencyNormal Urgency = iota
	UrgencyUrgent
	UrgencyEmergency
)

func (u Urgency) String() string {
	switch u {
	case UrgencyEmergency:
		return "emergency"
	case UrgencyUrgent:
		return "urgent"
	default:
		return "normal"
	}
}

// Emergency keywords are checked before urgent keywords: a message containing
// both is classified as an emergency.
var emergencyKeywords = []string{
	"chest pain", "can't breathe", "cannot breathe", "unconscious", "bleeding heavily",
	"severe bleeding", "stroke", "heart attack", "overdose", "suicid",
	"ألم في الصدر", "لا أستطيع التنفس", "فاقد الوعي", "نزيف حاد", "جلطة", "نوبة قلبية",
}

var urgentKeywords = []string{
	"severe", "intense", "unbearable", "high fever", "worsening", "getting worse",
	"شديد", "حاد", "لا يحتمل", "حمى مرتفعة", "يزداد سوءاً",
}

// AssessUrgency classifies a message into an urgency tier from fixed keyword
// sets. Emergency wins on overlap.
func AssessUrgency(message string) Urgency {
	normalized := strings.ToLower(message)
	for _, kw := range emergencyKeywords {
		if strings.Contains(normalized, kw) {
			return UrgencyEmergency
		}
	}
	for _, kw := range urgentKeywords {
		if strings.Contains(normalized, kw) {
			return UrgencyUrgent
		}
	}
	return UrgencyNormal
}

// followUpQuestions per specialty, used to keep the dialogue moving when a
// symptom matched.
var followUpQuestions = map[string]localized{
	"Cardiology": {
		en: "Does the pain spread to your arm or jaw? How long have you felt it?",
		ar: "هل ينتشر الألم إلى ذراعك أو فكك؟ منذ متى تشعر به؟",
	},
	"Dermatology": {
		en: "When did the skin changes start, and are they spreading?",
		ar: "متى بدأت التغيرات الجلدية، وهل تنتشر؟",
	},
	"Neurology": {
		en: "How long have you had this, and does light or noise make it worse?",
		ar: "منذ متى تعاني من ذلك، وهل يزداد مع الضوء أو الضجيج؟",
	},
	"Orthopedics": {
		en: "Did the pain start after an injury, and does it limit your movement?",
		ar: "هل بدأ الألم بعد إصابة، وهل يحد من حركتك؟",
	},
	"Gastroenterology": {
		en: "When did it start, and have you noticed any relation to meals?",
		ar: "متى بدأت الأعراض، وهل لاحظت علاقة بالوجبات؟",
	},
	"Pediatrics": {
		en: "How old is the child, and do they have a fever?",
		ar: "كم عمر الطفل، وهل لديه حمى؟",
	},
}

var genericFollowUp = localized{
	en: "How long have you had these symptoms?",
	ar: "منذ متى تعاني من هذه الأعراض؟",
}

// TriageComposer turns symptom messages into medical-advice responses:
// urgency banner, matched specialty's doctors and a follow-up question.
type TriageComposer struct {
	detector      *SpecialtyDetector
	doctors       clinic.DoctorRepository
	minConfidence float64
	logger        *logging.Logger
}

// NewTriageComposer wires the composer. minConfidence gates whether a
// specialty match is acted upon; the detector itself never thresholds.
func NewTriageComposer(detector *SpecialtyDetector, doctors clinic.DoctorRepository, minConfidence float64, logger *logging.Logger) *TriageComposer {
	if logger == nil {
		logger = logging.Default()
	}
	return &TriageComposer{
		detector:      detector,
		doctors:       doctors,
		minConfidence: minConfidence,
		logger:        logger,
	}
}

// Compose builds the advice reply. Returns (nil, false) when the message does
// not look like a symptom report at all.
func (t *TriageComposer) Compose(ctx context.Context, message string) (*Reply, bool) {
	urgency := AssessUrgency(message)
	specialty, confidence := t.detector.Detect(message)

	if urgency == UrgencyNormal && (specialty == "" || confidence < t.minConfidence) {
		return nil, false
	}

	lang := detectLanguage(message)
	var b strings.Builder

	switch urgency {
	case UrgencyEmergency:
		b.WriteString(msgEmergency.in(lang))
	case UrgencyUrgent:
		b.WriteString(msgUrgent.in(lang))
	}

	suggestions := []string{}
	if specialty != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf(msgSeeDoctors.in(lang), specialty))

		doctors, err := t.doctors.FindBySpecialty(ctx, specialty)
		if err != nil {
			t.logger.Error("triage: doctor lookup failed", "specialty", specialty, "error", err)
		}
		for _, doc := range doctors {
			b.WriteString(fmt.Sprintf("\n- %s (%s)", doc.Name, formatFee(doc.FeeCents)))
			suggestions = append(suggestions, doc.Name)
		}

		followUp, ok := followUpQuestions[specialty]
		if !ok {
			followUp = genericFollowUp
		}
		b.WriteString("\n\n")
		b.WriteString(followUp.in(lang))
	} else {
		b.WriteString("\n\n")
		b.WriteString(genericFollowUp.in(lang))
	}

	return &Reply{Response: b.String(), Suggestions: suggestions}, true
}
