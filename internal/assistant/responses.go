package assistant

import (
	"fmt"
	"strings"
	"unicode"
)

// Supported response languages.
const (
	LangEnglish = "en"
	LangArabic  = "ar"
)

// localized holds one response string per supported language.
type localized struct {
	en string
	ar string
}

func (l localized) in(lang string) string {
	if lang == LangArabic && l.ar != "" {
		return l.ar
	}
	return l.en
}

var (
	msgApology = localized{
		en: "I'm sorry, I couldn't process your request right now. Please try again in a moment, or contact the clinic directly.",
		ar: "عذراً، لم أتمكن من معالجة طلبك الآن. يرجى المحاولة مرة أخرى بعد قليل أو التواصل مع العيادة مباشرة.",
	}
	msgGreeting = localized{
		en: "Hello! I'm the clinic assistant. I can help you book an appointment, answer questions about our doctors, or give general guidance about symptoms. How can I help?",
		ar: "مرحباً! أنا مساعد العيادة. يمكنني مساعدتك في حجز موعد أو الإجابة عن أسئلتك حول الأطباء أو تقديم إرشادات عامة عن الأعراض. كيف أقدر أساعدك؟",
	}
	msgGreetingNamed = localized{
		en: "Hello %s! I'm the clinic assistant. How can I help you today?",
		ar: "مرحباً %s! أنا مساعد العيادة. كيف أقدر أساعدك اليوم؟",
	}
	msgDoctorNotFound = localized{
		en: "I couldn't find that doctor. Please pick a doctor from the list and try again.",
		ar: "لم أتمكن من العثور على هذا الطبيب. يرجى اختيار طبيب من القائمة والمحاولة مرة أخرى.",
	}
	msgCompleteProfile = localized{
		en: "Please complete your patient profile before booking an appointment.",
		ar: "يرجى إكمال ملفك الشخصي كمريض قبل حجز موعد.",
	}
	msgAskDate = localized{
		en: "Great, let's book with %s. Which date works for you? (for example 2025-09-14)",
		ar: "رائع، لنحجز مع %s. ما هو التاريخ المناسب لك؟ (مثال: 2025-09-14)",
	}
	msgBadDate = localized{
		en: "I couldn't read that date. Please send it like 2025-09-14.",
		ar: "لم أفهم هذا التاريخ. يرجى إرساله بصيغة مثل 2025-09-14.",
	}
	msgPastDate = localized{
		en: "That date has already passed. Please choose today or a future date.",
		ar: "هذا التاريخ قد مضى. يرجى اختيار اليوم أو تاريخ قادم.",
	}
	msgNoSlots = localized{
		en: "No free slots on that day. Please try another date.",
		ar: "لا توجد مواعيد متاحة في هذا اليوم. يرجى تجربة تاريخ آخر.",
	}
	msgAskTime = localized{
		en: "Available times on %s:\n%s\nWhich time suits you?",
		ar: "المواعيد المتاحة يوم %s:\n%s\nأي وقت يناسبك؟",
	}
	msgBadTime = localized{
		en: "I couldn't read that time. Please send one of the listed times, like 10:30.",
		ar: "لم أفهم هذا الوقت. يرجى إرسال أحد الأوقات المعروضة، مثل 10:30.",
	}
	msgDayFull = localized{
		en: "That day has just been fully booked. Please start a new booking to pick another date.",
		ar: "اكتمل حجز هذا اليوم للتو. يرجى بدء حجز جديد لاختيار تاريخ آخر.",
	}
	msgSlotTaken = localized{
		en: "That time isn't available anymore. Please pick one of: %s",
		ar: "هذا الوقت لم يعد متاحاً. يرجى اختيار أحد الأوقات التالية: %s",
	}
	msgConfirmSummary = localized{
		en: "Please confirm your appointment:\nDoctor: %s (%s)\nDate: %s\nTime: %s\nFee: %s\nReply \"confirm\" to book or \"cancel\" to stop.",
		ar: "يرجى تأكيد موعدك:\nالطبيب: %s (%s)\nالتاريخ: %s\nالوقت: %s\nالرسوم: %s\nأرسل \"تأكيد\" للحجز أو \"إلغاء\" للتوقف.",
	}
	msgConfirmReprompt = localized{
		en: "Reply \"confirm\" to book the appointment or \"cancel\" to stop.",
		ar: "أرسل \"تأكيد\" لحجز الموعد أو \"إلغاء\" للتوقف.",
	}
	msgBooked = localized{
		en: "Your appointment with %s on %s at %s is booked and pending confirmation. See you then!",
		ar: "تم حجز موعدك مع %s يوم %s الساعة %s وهو قيد التأكيد. نراك قريباً!",
	}
	msgBookingFailed = localized{
		en: "I couldn't save your appointment just now. Your selection is kept - please reply \"confirm\" again to retry.",
		ar: "لم أتمكن من حفظ موعدك الآن. اختيارك محفوظ - يرجى إرسال \"تأكيد\" مرة أخرى لإعادة المحاولة.",
	}
	msgBookingCancelled = localized{
		en: "No problem, I've cancelled the booking. Let me know if you'd like to start again.",
		ar: "لا مشكلة، تم إلغاء الحجز. أخبرني إذا أردت البدء من جديد.",
	}
	msgEmergency = localized{
		en: "⚠️ Your symptoms may indicate an emergency. Please call emergency services or go to the nearest emergency room immediately.",
		ar: "⚠️ قد تشير أعراضك إلى حالة طارئة. يرجى الاتصال بالإسعاف أو التوجه إلى أقرب طوارئ فوراً.",
	}
	msgUrgent = localized{
		en: "Your symptoms sound like they should be seen soon. Please book an appointment within the next day or two.",
		ar: "تبدو أعراضك بحاجة إلى متابعة قريبة. يرجى حجز موعد خلال يوم أو يومين.",
	}
	msgSeeDoctors = localized{
		en: "These doctors can help with %s:",
		ar: "هؤلاء الأطباء يمكنهم المساعدة في تخصص %s:",
	}
)

// detectLanguage returns LangArabic when the text contains Arabic script,
// LangEnglish otherwise.
func detectLanguage(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Arabic, r) {
			return LangArabic
		}
	}
	return LangEnglish
}

func formatFee(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func formatSlotList(slots []string) string {
	return strings.Join(slots, ", ")
}
