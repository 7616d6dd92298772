// Package email defines the send-side data model shared by the message
// builder, the transports and the sender.
package email

import (
	"strings"
)

// Provider identifies the mail delivery backend a request is routed to.
type Provider string

const (
	ProviderGmail   Provider = "gmail"
	ProviderOutlook Provider = "outlook"
	ProviderSES     Provider = "ses"
	ProviderGraph   Provider = "graph"
	ProviderStdout  Provider = "stdout"
)

// knownProviders lists every provider value ParseProvider accepts.
var knownProviders = []Provider{
	ProviderGmail,
	ProviderOutlook,
	ProviderSES,
	ProviderGraph,
	ProviderStdout,
}

// ParseProvider maps a case-insensitive name to a Provider. The second return
// value is false for names outside the known set.
func ParseProvider(name string) (Provider, bool) {
	normalized := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, p := range knownProviders {
		if p == normalized {
			return p, true
		}
	}
	return normalized, false
}

// Label returns the display name used in logs and the sent-mail table.
func (p Provider) Label() string {
	switch p {
	case ProviderGmail:
		return "GMAIL"
	case ProviderOutlook:
		return "OUTLOOK"
	default:
		return strings.ToUpper(string(p))
	}
}

// Attachment represents a file attached to an outgoing message. The caller
// owns Content; builders and transports only read it.
type Attachment struct {
	Filename string
	Content  []byte
	MIMEType string
}

// SendRequest carries everything needed for a single send attempt. It is
// built per attempt and never persisted.
type SendRequest struct {
	Provider       Provider
	SenderEmail    string
	SenderPassword string
	RecipientEmail string
	Subject        string
	Body           string
	Attachments    []Attachment
}

// RecipientDomain returns the domain part of the recipient address, used as
// low-cardinality context in logs and failure messages.
func (r *SendRequest) RecipientDomain() string {
	at := strings.LastIndex(r.RecipientEmail, "@")
	if at < 0 {
		return ""
	}
	return r.RecipientEmail[at+1:]
}
