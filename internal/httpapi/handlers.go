package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/draft"
	"github.com/shineum/mailscribe/internal/email"
	"github.com/shineum/mailscribe/internal/logging"
	"github.com/shineum/mailscribe/internal/sender"
	"github.com/shineum/mailscribe/internal/sentlog"
	"github.com/shineum/mailscribe/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// attachmentRequest carries Content base64 encoded on the wire.
type attachmentRequest struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
	MIMEType string `json:"mime_type"`
}

type sendRequest struct {
	Provider       string              `json:"provider"`
	SenderEmail    string              `json:"sender_email"`
	SenderPassword string              `json:"sender_password"`
	RecipientEmail string              `json:"recipient_email"`
	Subject        string              `json:"subject"`
	Body           string              `json:"body"`
	Attachments    []attachmentRequest `json:"attachments"`
	Log            bool                `json:"log"`
}

type providersResponse struct {
	Mail      []email.Provider `json:"mail"`
	AIBackend string           `json:"ai_backend"`
	Languages []string         `json:"languages"`
}

type logResponse struct {
	Records []sentlog.Record `json:"records"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, providersResponse{
		Mail:      s.svc.Providers(),
		AIBackend: s.svc.BackendName(),
		Languages: draft.Languages(),
	})
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req draft.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.svc.Draft(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var body sendRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	req := s.toSendRequest(r, body)
	res := s.svc.Send(r.Context(), req, body.Log)

	status := http.StatusOK
	switch {
	case res.OK:
	case res.Error == sender.UnsupportedProvider:
		status = http.StatusBadRequest
	case strings.HasPrefix(res.Error, apperr.KindConfiguration):
		status = http.StatusBadRequest
	default:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

// toSendRequest fills the configured account for fields the client left
// empty. The password is only filled for trusted clients and only when the
// sender is the configured one.
func (s *Server) toSendRequest(r *http.Request, body sendRequest) *email.SendRequest {
	providerName := body.Provider
	if strings.TrimSpace(providerName) == "" {
		providerName = s.cfg.MailProvider
	}
	p, _ := email.ParseProvider(providerName)

	req := &email.SendRequest{
		Provider:       p,
		SenderEmail:    strings.TrimSpace(body.SenderEmail),
		SenderPassword: body.SenderPassword,
		RecipientEmail: strings.TrimSpace(body.RecipientEmail),
		Subject:        body.Subject,
		Body:           body.Body,
	}
	if req.SenderEmail == "" {
		req.SenderEmail = s.cfg.SenderEmail
	}
	if req.SenderPassword == "" && strings.EqualFold(req.SenderEmail, s.cfg.SenderEmail) && s.trusted(r) {
		req.SenderPassword = s.cfg.SenderPassword
	}
	for _, a := range body.Attachments {
		req.Attachments = append(req.Attachments, email.Attachment{
			Filename: a.Filename,
			Content:  a.Content,
			MIMEType: a.MIMEType,
		})
	}
	return req
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Profile())
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var p draft.Profile
	if !decodeJSON(w, r, &p) {
		return
	}
	if err := s.svc.SaveProfile(p); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	settings := store.DefaultSettings()
	if !decodeJSON(w, r, &settings) {
		return
	}
	if err := s.svc.SaveSettings(settings); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.SentLog()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if recs == nil {
		recs = []sentlog.Record{}
	}
	writeJSON(w, http.StatusOK, logResponse{Records: recs})
}

// decodeJSON reads the request body into dst, writing a 4xx response and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func statusFor(err error) int {
	switch apperr.Kind(err) {
	case apperr.KindConfiguration:
		return http.StatusBadRequest
	case apperr.KindGeneration, apperr.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", logging.Err(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: apperr.Kind(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response failed", logging.Err(err))
	}
}
