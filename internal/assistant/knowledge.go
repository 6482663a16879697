package assistant

import (
	"regexp"
	"strings"
)

// KnowledgeRule maps a message pattern to a canned answer. Rules are immutable
// after construction and evaluated in declaration order; the first match wins.
type KnowledgeRule struct {
	Category string
	Pattern  *regexp.Regexp
	Keywords []string // fallback matching when the pattern misses
	Response localized
}

// KnowledgeMatcher answers common questions from a fixed rule table without
// touching any LLM backend.
type KnowledgeMatcher struct {
	rules []KnowledgeRule
}

// NewKnowledgeMatcher creates a matcher over the given rule table. The table
// is loaded once at startup and never mutated.
func NewKnowledgeMatcher(rules []KnowledgeRule) *KnowledgeMatcher {
	return &KnowledgeMatcher{rules: rules}
}

// Match tests the message against every rule in order. Returns the rendered
// response and true on the first hit, or ("", false) when nothing matches.
func (m *KnowledgeMatcher) Match(message string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return "", false
	}
	lang := detectLanguage(message)

	for _, rule := range m.rules {
		if rule.Pattern != nil && rule.Pattern.MatchString(normalized) {
			return rule.Response.in(lang), true
		}

		// Keyword fallback needs at least 2 hits to avoid false matches.
		if len(rule.Keywords) > 0 {
			matchCount := 0
			for _, kw := range rule.Keywords {
				if strings.Contains(normalized, kw) {
					matchCount++
				}
			}
			if matchCount >= 2 {
				return rule.Response.in(lang), true
			}
		}
	}

	return "", false
}

// DefaultKnowledgeRules is the built-in bilingual rule table covering account,
// appointment and payment questions.
func DefaultKnowledgeRules() []KnowledgeRule {
	return []KnowledgeRule{
		{
			Category: "authentication",
			Pattern:  regexp.MustCompile(`(forgot|reset|change).*(password)|(نسيت|تغيير).*(كلمة (السر|المرور))`),
			Keywords: []string{"password", "login", "account"},
			Response: localized{
				en: "To reset your password, open the login page and choose \"Forgot password\". A reset link will be sent to your registered email address.",
				ar: "لإعادة تعيين كلمة المرور، افتح صفحة تسجيل الدخول واختر \"نسيت كلمة المرور\". سيصلك رابط إعادة التعيين على بريدك الإلكتروني المسجل.",
			},
		},
		{
			Category: "appointments",
			Pattern:  regexp.MustCompile(`(cancel|reschedule).*(appointment|booking)|(إلغاء|تأجيل).*(موعد|حجز)`),
			Response: localized{
				en: "You can cancel or reschedule from \"My Appointments\" up to 24 hours before the visit. Cancellations within 24 hours may incur a fee.",
				ar: "يمكنك الإلغاء أو إعادة الجدولة من صفحة \"مواعيدي\" حتى 24 ساعة قبل الزيارة. قد يُفرض رسم على الإلغاء خلال آخر 24 ساعة.",
			},
		},
		{
			Category: "appointments",
			Pattern:  regexp.MustCompile(`(how|where).*(book|schedule).*(appointment|doctor)|كيف.*(احجز|أحجز|حجز)`),
			Keywords: []string{"book", "appointment", "how"},
			Response: localized{
				en: "To book an appointment, pick a doctor from the doctors page, then I'll walk you through choosing a date and time.",
				ar: "لحجز موعد، اختر طبيباً من صفحة الأطباء وسأرشدك خطوة بخطوة لاختيار التاريخ والوقت.",
			},
		},
		{
			Category: "payments",
			Pattern:  regexp.MustCompile(`\b(pay|payment|refund|fee|price|cost)\b|(الدفع|استرداد|رسوم|سعر|تكلفة)`),
			Keywords: []string{"payment", "card", "cash"},
			Response: localized{
				en: "We accept card payments online and cash at the clinic. Consultation fees are shown on each doctor's profile, and refunds for cancelled visits are returned within 5-7 business days.",
				ar: "نقبل الدفع بالبطاقة عبر الإنترنت أو نقداً في العيادة. تظهر رسوم الكشف في صفحة كل طبيب، ويُرد مبلغ الزيارات الملغاة خلال 5-7 أيام عمل.",
			},
		},
		{
			Category: "clinic_info",
			Pattern:  regexp.MustCompile(`(opening|working).*(hours|times)|(متى|مواعيد).*(العمل|الدوام)`),
			Keywords: []string{"open", "hours", "clinic"},
			Response: localized{
				en: "The clinic is open Saturday to Thursday, 9:00 to 18:00. Individual doctors' hours are listed on their profiles.",
				ar: "العيادة مفتوحة من السبت إلى الخميس، من 9:00 حتى 18:00. مواعيد كل طبيب موضحة في صفحته.",
			},
		},
	}
}
