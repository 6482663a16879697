package assistant

import (
	"context"
	"strings"
	"testing"

	"github.com/clinicware/assistant-platform/internal/clinic"
)

func TestAssessUrgency(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Urgency
	}{
		{"emergency", "I have severe chest pain right now", UrgencyEmergency},
		{"emergency wins over urgent", "severe chest pain, getting worse", UrgencyEmergency},
		{"urgent", "my headache is getting worse every day", UrgencyUrgent},
		{"urgent arabic", "عندي صداع شديد", UrgencyUrgent},
		{"normal", "I have a mild cough", UrgencyNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AssessUrgency(tt.message); got != tt.want {
				t.Errorf("AssessUrgency(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func triageFixture(t *testing.T) *TriageComposer {
	t.Helper()
	dir := clinic.NewInMemoryDirectory()
	dir.AddDoctor(clinic.Doctor{ID: "d1", Name: "Dr. Salma Hassan", Specialty: "Neurology", FeeCents: 20000, DayStart: "09:00", DayEnd: "17:00", SlotMinutes: 30})
	dir.AddDoctor(clinic.Doctor{ID: "d2", Name: "Dr. Omar Khalil", Specialty: "Cardiology", FeeCents: 25000, DayStart: "09:00", DayEnd: "17:00", SlotMinutes: 30})
	return NewTriageComposer(NewSpecialtyDetector(DefaultSpecialtyProfiles()), dir, 0.6, nil)
}

func TestTriageComposeArabicSevereHeadache(t *testing.T) {
	composer := triageFixture(t)

	reply, ok := composer.Compose(context.Background(), "عندي صداع شديد")
	if !ok {
		t.Fatal("expected a composed triage reply")
	}
	if !strings.Contains(reply.Response, msgUrgent.ar) {
		t.Error("expected the arabic urgency banner")
	}
	if !strings.Contains(reply.Response, "Dr. Salma Hassan") {
		t.Error("expected the neurology doctor in the reply")
	}
	if len(reply.Suggestions) == 0 {
		t.Error("expected doctor suggestions")
	}
	if !strings.Contains(reply.Response, followUpQuestions["Neurology"].ar) {
		t.Error("expected at least one follow-up question")
	}
}

func TestTriageComposeEmergencyBanner(t *testing.T) {
	composer := triageFixture(t)

	reply, ok := composer.Compose(context.Background(), "I have chest pain and I can't breathe")
	if !ok {
		t.Fatal("expected a composed triage reply")
	}
	if !strings.HasPrefix(reply.Response, msgEmergency.en) {
		t.Errorf("reply should lead with the emergency banner, got %q", reply.Response)
	}
}

func TestTriageComposeFallsThroughOnNormalChat(t *testing.T) {
	composer := triageFixture(t)

	if _, ok := composer.Compose(context.Background(), "what are your opening hours?"); ok {
		t.Error("non-symptom message should fall through")
	}
}
