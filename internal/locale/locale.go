// Package locale provides per-language message tables and text direction
// metadata for the Arabic/English customer surfaces. A Locale value is
// resolved once per request and passed down explicitly; it is immutable.
package locale

// Lang is a supported UI language.
type Lang string

const (
	LangArabic  Lang = "ar"
	LangEnglish Lang = "en"
)

// TextDirection is the writing direction for a language.
type TextDirection string

const (
	DirectionLTR TextDirection = "ltr"
	DirectionRTL TextDirection = "rtl"
)

// Locale carries the active language and its text direction.
type Locale struct {
	Lang Lang
	Dir  TextDirection
}

// For resolves a Locale for the given language tag. Unknown or empty tags
// fall back to English.
func For(lang string) Locale {
	if Lang(lang) == LangArabic {
		return Locale{Lang: LangArabic, Dir: DirectionRTL}
	}
	return Locale{Lang: LangEnglish, Dir: DirectionLTR}
}

// T returns the localized message for a key. Missing Arabic entries fall
// back to English; a missing key is returned verbatim so it shows up in the
// UI instead of vanishing.
func (l Locale) T(key string) string {
	if table, ok := messages[l.Lang]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[LangEnglish][key]; ok {
		return msg
	}
	return key
}
