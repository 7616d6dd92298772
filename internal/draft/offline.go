package draft

import (
	"fmt"
	"strings"
)

// DefaultLanguage is the offline template language when neither the request
// nor the configuration selects one with a template.
const DefaultLanguage = "tr"

const defaultPurpose = "General correspondence"

type template struct {
	name      string
	greeting  string // format with the recipient name
	anonymous string // greeting line when no name is given
	sentence  string // format with the purpose
	about     string
	closing   string
}

var templates = map[string]template{
	"tr": {
		name:      "Turkish",
		greeting:  "Merhaba %s,",
		anonymous: "Merhaba Alıcı,",
		sentence:  "%s hakkında iletişime geçmek isterim.",
		about:     "Hakkımda:",
		closing:   "Saygılarımla,",
	},
	"en": {
		name:      "English",
		greeting:  "Dear %s,",
		anonymous: "Dear Sir or Madam,",
		sentence:  "I would like to get in touch regarding %s.",
		about:     "About me:",
		closing:   "Kind regards,",
	},
	"de": {
		name:      "German",
		greeting:  "Guten Tag %s,",
		anonymous: "Sehr geehrte Damen und Herren,",
		sentence:  "ich möchte mich bezüglich %s an Sie wenden.",
		about:     "Über mich:",
		closing:   "Mit freundlichen Grüßen,",
	},
	"fr": {
		name:      "French",
		greeting:  "Bonjour %s,",
		anonymous: "Madame, Monsieur,",
		sentence:  "Je souhaite prendre contact avec vous au sujet de %s.",
		about:     "À propos de moi :",
		closing:   "Cordialement,",
	},
	"es": {
		name:      "Spanish",
		greeting:  "Hola %s,",
		anonymous: "Estimado/a destinatario/a,",
		sentence:  "Me gustaría ponerme en contacto con usted en relación con %s.",
		about:     "Sobre mí:",
		closing:   "Saludos cordiales,",
	},
}

var languageAliases = map[string]string{
	"tr": "tr", "turkish": "tr", "türkçe": "tr", "turkce": "tr",
	"en": "en", "english": "en",
	"de": "de", "german": "de", "deutsch": "de",
	"fr": "fr", "french": "fr", "français": "fr", "francais": "fr",
	"es": "es", "spanish": "es", "español": "es", "espanol": "es",
}

// languageCode maps a language name or code to a template key.
func languageCode(lang string) (string, bool) {
	code, ok := languageAliases[strings.ToLower(strings.TrimSpace(lang))]
	return code, ok
}

// languageName returns the English name for lang, or lang itself when it has
// no template.
func languageName(lang string) string {
	if code, ok := languageCode(lang); ok {
		return templates[code].name
	}
	return strings.TrimSpace(lang)
}

// Languages returns the template codes in a stable order.
func Languages() []string {
	return []string{"tr", "en", "de", "fr", "es"}
}

// Offline renders the template draft for req in req's language, or in
// DefaultLanguage when req's language has no template.
func Offline(req Request) Draft {
	return offline(req.normalized(), DefaultLanguage)
}

func offline(req Request, fallbackLang string) Draft {
	code, ok := languageCode(req.Language)
	if !ok {
		code = fallbackLang
	}
	tpl := templates[code]

	greeting := tpl.anonymous
	if req.RecipientName != "" {
		greeting = fmt.Sprintf(tpl.greeting, req.RecipientName)
	}

	lines := []string{greeting, "", fmt.Sprintf(tpl.sentence, req.Purpose)}
	if ctx := strings.TrimSpace(req.AdditionalContext); ctx != "" {
		lines = append(lines, ctx)
	}
	if profile := req.Profile.Lines(); len(profile) > 0 {
		lines = append(lines, "", tpl.about)
		lines = append(lines, profile...)
	}
	lines = append(lines, "", tpl.closing)

	return Draft{
		Subject: subjectFor(req.Purpose),
		Body:    strings.TrimSpace(strings.Join(lines, "\n")),
	}
}

func subjectFor(purpose string) string {
	return "Regarding: " + purpose
}
