package assistant

import "strings"

// SpecialtyProfile describes one medical specialty as a keyword set.
type SpecialtyProfile struct {
	Name     string
	Keywords []string
}

// SpecialtyDetector scores free text against a fixed profile list. It performs
// no thresholding; callers decide what confidence is actionable.
type SpecialtyDetector struct {
	profiles []SpecialtyProfile
}

// NewSpecialtyDetector creates a detector over the given profiles. Profile
// declaration order is significant: ties resolve to the earliest profile.
func NewSpecialtyDetector(profiles []SpecialtyProfile) *SpecialtyDetector {
	return &SpecialtyDetector{profiles: profiles}
}

// Detect returns the best-matching specialty and its confidence, where
// confidence = matched keywords / total keywords for that profile. A profile
// wins only with strictly higher confidence, so equal scores keep the
// first-declared specialty. Returns ("", 0) when no keyword matches.
func (d *SpecialtyDetector) Detect(text string) (string, float64) {
	normalized := strings.ToLower(text)

	bestName := ""
	bestConfidence := 0.0
	for _, profile := range d.profiles {
		if len(profile.Keywords) == 0 {
			continue
		}
		hits := 0
		for _, kw := range profile.Keywords {
			if strings.Contains(normalized, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		confidence := float64(hits) / float64(len(profile.Keywords))
		if confidence > bestConfidence {
			bestName = profile.Name
			bestConfidence = confidence
		}
	}

	return bestName, bestConfidence
}

// DefaultSpecialtyProfiles is the built-in bilingual specialty keyword table.
func DefaultSpecialtyProfiles() []SpecialtyProfile {
	return []SpecialtyProfile{
		{Name: "Cardiology", Keywords: []string{
			"heart", "chest pain", "palpitation", "blood pressure", "قلب", "ضغط الدم", "خفقان",
		}},
		{Name: "Dermatology", Keywords: []string{
			"skin", "rash", "acne", "itching", "eczema", "جلد", "طفح", "حكة", "حبوب",
		}},
		{Name: "Neurology", Keywords: []string{
			"headache", "migraine", "dizziness", "numbness", "seizure", "صداع", "شقيقة", "دوخة", "تنميل",
		}},
		{Name: "Orthopedics", Keywords: []string{
			"bone", "joint", "back pain", "knee", "fracture", "عظم", "مفصل", "ألم الظهر", "ركبة", "كسر",
		}},
		{Name: "Gastroenterology", Keywords: []string{
			"stomach", "nausea", "vomiting", "diarrhea", "abdominal", "معدة", "غثيان", "قيء", "إسهال", "بطن",
		}},
		{Name: "Pediatrics", Keywords: []string{
			"child", "baby", "infant", "vaccination", "طفل", "رضيع", "تطعيم",
		}},
	}
}
