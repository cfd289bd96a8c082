package chat

import "fmt"

// PlaceholderTitle is the default session title before the first user message
// rewrites it.
func PlaceholderTitle(language Language) string {
	if language == LanguageArabic {
		return "محادثة جديدة"
	}
	return "New conversation"
}

// SelectCountryPrompt asks the user to pick a jurisdiction before chatting.
func SelectCountryPrompt(language Language) string {
	if language == LanguageArabic {
		return "يرجى تحديد بلد أولاً للحصول على معلومات قانونية خاصة بالمنطقة."
	}
	return "Please select a country first to get region-specific legal information."
}

// ConnectionError formats a remote-call failure for the transcript.
func ConnectionError(language Language, cause string) string {
	if language == LanguageArabic {
		return fmt.Sprintf("خطأ في الاتصال: %s.", cause)
	}
	return fmt.Sprintf("Connection error: %s.", cause)
}

// TransportHint extends a connection error when the endpoint never answered,
// pointing the user at the backend address.
func TransportHint(language Language, apiURL string) string {
	if language == LanguageArabic {
		return " قد يكون هذا بسبب مشكلة في CORS أو عدم توفر خدمة الخلفية. يرجى التأكد من تشغيل الخادم الخلفي في " + apiURL
	}
	return " This may be due to a CORS issue or the backend service being unavailable. Please ensure the backend is running at " + apiURL
}

var countryNames = map[Country]string{
	CountryOman:  "Oman",
	CountrySaudi: "Saudi Arabia",
	CountryUAE:   "UAE",
}

var countryNamesArabic = map[Country]string{
	CountryOman:  "عمان",
	CountrySaudi: "المملكة العربية السعودية",
	CountryUAE:   "الإمارات العربية المتحدة",
}

// CountryName returns the display name of a country in the given language.
func CountryName(country Country, language Language) string {
	names := countryNames
	if language == LanguageArabic {
		names = countryNamesArabic
	}
	if name, ok := names[country]; ok {
		return name
	}
	if language == LanguageArabic {
		return "بلدك"
	}
	return "your country"
}

var welcomeMessages = map[Country]string{
	CountryOman:  "Welcome to Oman Legal AI Assistant. How can I help you with Omani law today?",
	CountrySaudi: "Welcome to Saudi Legal AI Assistant. How can I help you with Saudi law today?",
	CountryUAE:   "Welcome to UAE Legal AI Assistant. How can I help you with Emirati law today?",
}

var welcomeMessagesArabic = map[Country]string{
	CountryOman:  "مرحبًا بكم في المساعد القانوني الذكي لعمان. كيف يمكنني مساعدتك في القانون العماني اليوم؟",
	CountrySaudi: "مرحبًا بكم في المساعد القانوني الذكي للسعودية. كيف يمكنني مساعدتك في القانون السعودي اليوم؟",
	CountryUAE:   "مرحبًا بكم في المساعد القانوني الذكي للإمارات. كيف يمكنني مساعدتك في القانون الإماراتي اليوم؟",
}

// WelcomeMessage greets the user for a fresh transcript, localized and scoped
// to the selected country when one is set.
func WelcomeMessage(country Country, language Language) string {
	if country.Valid() {
		if language == LanguageArabic {
			return welcomeMessagesArabic[country]
		}
		return welcomeMessages[country]
	}
	if language == LanguageArabic {
		return "مرحبًا! أنا المساعد القانوني الذكي. كيف يمكنني مساعدتك اليوم؟"
	}
	return "Hello! I am your legal AI assistant. How can I help you today?"
}
