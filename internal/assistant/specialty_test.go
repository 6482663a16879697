package assistant

import "testing"

func TestSpecialtyDetectorDetect(t *testing.T) {
	d := NewSpecialtyDetector(DefaultSpecialtyProfiles())

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"cardiology", "I have chest pain and palpitations", "Cardiology"},
		{"dermatology", "there's a rash on my arm and it itches", "Dermatology"},
		{"neurology", "I keep getting headaches and dizziness", "Neurology"},
		{"neurology arabic", "عندي صداع", "Neurology"},
		{"no match", "I'd like to ask about parking", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conf := d.Detect(tt.message)
			if got != tt.want {
				t.Errorf("Detect(%q) = %q (conf %.2f), want %q", tt.message, got, conf, tt.want)
			}
			if tt.want == "" && conf != 0 {
				t.Errorf("no-match confidence = %.2f, want 0", conf)
			}
			if tt.want != "" && conf <= 0 {
				t.Errorf("match confidence = %.2f, want > 0", conf)
			}
		})
	}
}

func TestSpecialtyDetectorTieBreakIsFirstDeclared(t *testing.T) {
	profiles := []SpecialtyProfile{
		{Name: "Alpha", Keywords: []string{"ache", "pain"}},
		{Name: "Beta", Keywords: []string{"ache", "pain"}},
	}
	d := NewSpecialtyDetector(profiles)

	for i := 0; i < 20; i++ {
		got, _ := d.Detect("I have an ache and some pain")
		if got != "Alpha" {
			t.Fatalf("iteration %d: tie broke to %q, want first-declared Alpha", i, got)
		}
	}
}

func TestSpecialtyDetectorConfidenceRatio(t *testing.T) {
	d := NewSpecialtyDetector([]SpecialtyProfile{
		{Name: "Test", Keywords: []string{"aa", "bb", "cc", "dd"}},
	})
	_, conf := d.Detect("aa and bb happened")
	if conf != 0.5 {
		t.Errorf("confidence = %.2f, want 0.50 (2 of 4 keywords)", conf)
	}
}
