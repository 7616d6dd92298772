package draft

import (
	"fmt"
	"strings"
)

// Length is a target draft length. It is guidance for the model only.
type Length string

const (
	LengthVeryShort Length = "very-short"
	LengthShort     Length = "short"
	LengthMedium    Length = "medium"
	LengthLong      Length = "long"
)

// ParseLength accepts the canonical names as well as display forms such as
// "Short (1-2 paragraphs)". Anything else is LengthMedium.
func ParseLength(s string) Length {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(s, "("); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), "-")
	switch Length(s) {
	case LengthVeryShort, LengthShort, LengthMedium, LengthLong:
		return Length(s)
	}
	return LengthMedium
}

// Guidance returns the instruction text for l.
func (l Length) Guidance() string {
	switch l {
	case LengthVeryShort:
		return "Very Short (exactly 1 concise paragraph, about 700 characters, still with greeting and closing)"
	case LengthShort:
		return "Short (1-2 paragraphs)"
	case LengthLong:
		return "Long (5+ paragraphs)"
	default:
		return "Medium (3-4 paragraphs)"
	}
}

// BuildPrompt renders the single instruction sent to every backend.
func BuildPrompt(req Request) string {
	req = req.normalized()
	tone := strings.ToLower(req.Tone)
	language := languageName(req.Language)
	if language == "" {
		language = templates[DefaultLanguage].name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional email writing assistant. Write a well-structured, %s email in %s.\n\n", tone, language)
	b.WriteString("Write a complete email from the following information:\n\n")
	fmt.Fprintf(&b, "PURPOSE/TOPIC: %s\n", req.Purpose)
	fmt.Fprintf(&b, "RECIPIENT: %s\n", req.RecipientName)
	fmt.Fprintf(&b, "ADDITIONAL CONTEXT: %s\n", strings.TrimSpace(req.AdditionalContext))
	fmt.Fprintf(&b, "AUTHOR PROFILE:\n%s\n", strings.Join(req.Profile.Lines(), "\n"))
	fmt.Fprintf(&b, "EMAIL LENGTH: %s\n\n", req.Length.Guidance())
	b.WriteString("Requirements:\n")
	b.WriteString("- Address the purpose/topic directly.\n")
	b.WriteString("- If this is a job application, write a compelling cover letter.\n")
	b.WriteString("- Use the author profile naturally to personalize the email.\n")
	fmt.Fprintf(&b, "- Keep the tone %s and write in %s.\n", tone, language)
	b.WriteString("- Include a greeting and a closing.\n")
	fmt.Fprintf(&b, "- Follow the requested length: %s.\n", req.Length.Guidance())
	b.WriteString("- Do not repeat these instructions.\n\n")
	b.WriteString("Return ONLY a JSON object with exactly these keys:\n")
	b.WriteString(`{"subject": "a clear subject line", "body": "the complete email body"}`)
	return b.String()
}
