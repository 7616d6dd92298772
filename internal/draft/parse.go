package draft

import (
	"encoding/json"
	"strings"
)

// maxSubjectRunes caps a subject taken from the first line of a free-form
// reply.
const maxSubjectRunes = 120

// ParseResponse extracts a Draft from a model reply. The first
// brace-balanced JSON object that decodes wins; without one, the first
// non-empty line is the subject and the remaining non-empty lines the body.
// purpose feeds the default subject.
func ParseResponse(text, purpose string) Draft {
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		purpose = defaultPurpose
	}

	if r, ok := decodeReply(text); ok {
		subject := strings.TrimSpace(r.Subject)
		if subject == "" {
			subject = subjectFor(purpose)
		}
		return Draft{Subject: subject, Body: strings.TrimSpace(r.Body)}
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	switch len(lines) {
	case 0:
		return Draft{Subject: subjectFor(purpose)}
	case 1:
		return Draft{Subject: truncateRunes(lines[0], maxSubjectRunes), Body: lines[0]}
	default:
		return Draft{
			Subject: truncateRunes(lines[0], maxSubjectRunes),
			Body:    strings.Join(lines[1:], "\n"),
		}
	}
}

type reply struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// decodeReply tries each brace-balanced {...} span of text in order and
// returns the first one that is a valid JSON object.
func decodeReply(text string) (reply, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := objectEnd(text, start); ok {
			var r reply
			if err := json.Unmarshal([]byte(text[start:end]), &r); err == nil {
				return r, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return reply{}, false
}

// objectEnd returns the index just past the brace that closes the one at
// start, skipping braces inside JSON strings.
func objectEnd(text string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
