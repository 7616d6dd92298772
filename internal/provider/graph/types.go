// Package graph implements a Provider that sends mail through the Microsoft
// Graph sendMail API.
package graph

import (
	"encoding/base64"

	"github.com/shineum/mailscribe/internal/email"
	"github.com/shineum/mailscribe/internal/message"
)

type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

type sendMailMessage struct {
	Subject      string            `json:"subject"`
	Body         messageBody       `json:"body"`
	ToRecipients []recipient       `json:"toRecipients"`
	Attachments  []graphAttachment `json:"attachments,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

type graphErrorResponse struct {
	Error graphError `json:"error"`
}

type graphError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// buildSendMailRequest converts a send request into a sendMail body. The body
// is always plain text.
func buildSendMailRequest(req *email.SendRequest) *sendMailRequest {
	attachments := make([]graphAttachment, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		name := att.Filename
		if name == "" {
			name = "attachment"
		}
		attachments = append(attachments, graphAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         name,
			ContentType:  message.MediaType(att.MIMEType),
			ContentBytes: base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	return &sendMailRequest{
		Message: sendMailMessage{
			Subject: req.Subject,
			Body: messageBody{
				ContentType: "text",
				Content:     req.Body,
			},
			ToRecipients: []recipient{
				{EmailAddress: emailAddress{Address: req.RecipientEmail}},
			},
			Attachments: attachments,
		},
		SaveToSentItems: true,
	}
}
