package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/mailscribe/internal/draft"
	"github.com/shineum/mailscribe/internal/email"
	"github.com/shineum/mailscribe/internal/metrics"
	"github.com/shineum/mailscribe/internal/provider"
	"github.com/shineum/mailscribe/internal/sender"
	"github.com/shineum/mailscribe/internal/sentlog"
	"github.com/shineum/mailscribe/internal/store"
)

type fakeProvider struct {
	name  string
	err   error
	calls int
}

func (f *fakeProvider) Send(context.Context, *email.SendRequest) error {
	f.calls++
	return f.err
}

func (f *fakeProvider) Name() string { return f.name }

type recordingBackend struct {
	prompt string
	reply  string
}

func (b *recordingBackend) Name() string { return "recording" }

func (b *recordingBackend) Complete(_ context.Context, prompt string) (string, error) {
	b.prompt = prompt
	return b.reply, nil
}

func newService(t *testing.T, deps Deps) *Service {
	t.Helper()
	dir := t.TempDir()
	if deps.Profiles == nil {
		deps.Profiles = store.NewProfileStore(filepath.Join(dir, "profile.json"))
	}
	if deps.Settings == nil {
		deps.Settings = store.NewSettingsStore(filepath.Join(dir, "settings.yaml"))
	}
	return New(deps)
}

func sendRequest() *email.SendRequest {
	return &email.SendRequest{
		Provider:       email.ProviderGmail,
		SenderEmail:    "me@example.com",
		RecipientEmail: "you@example.org",
		Subject:        "Hello",
		Body:           "Hi there",
	}
}

func TestDraft_UsesStoredProfileAndSettings(t *testing.T) {
	t.Parallel()

	svc := newService(t, Deps{})
	require.NoError(t, svc.SaveProfile(draft.Profile{Name: "Ayşe Yılmaz", Title: "Engineer"}))
	settings := store.DefaultSettings()
	settings.Language = "English"
	require.NoError(t, svc.SaveSettings(settings))

	res, err := svc.Draft(context.Background(), draft.Request{Purpose: "Q4 roadmap", RecipientName: "Sam"})
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.Equal(t, "Regarding: Q4 roadmap", res.Draft.Subject)
	assert.Contains(t, res.Draft.Body, "Dear Sam,")
	assert.Contains(t, res.Draft.Body, "About me:")
	assert.Contains(t, res.Draft.Body, "Name: Ayşe Yılmaz")
	assert.Contains(t, res.Draft.Body, "Title: Engineer")
}

func TestDraft_RequestOverridesStoredValues(t *testing.T) {
	t.Parallel()

	backend := &recordingBackend{reply: `{"subject":"Hi","body":"Hello there"}`}
	svc := newService(t, Deps{Generator: draft.NewGenerator(backend)})
	require.NoError(t, svc.SaveProfile(draft.Profile{Name: "Stored Name"}))

	res, err := svc.Draft(context.Background(), draft.Request{
		Purpose:  "Partnership",
		Tone:     "Friendly",
		Language: "German",
		Length:   draft.LengthLong,
		Profile:  draft.Profile{Name: "Given Name"},
	})
	require.NoError(t, err)

	assert.Equal(t, draft.Draft{Subject: "Hi", Body: "Hello there"}, res.Draft)
	assert.Equal(t, "recording", res.Backend)
	assert.Contains(t, backend.prompt, "Given Name")
	assert.NotContains(t, backend.prompt, "Stored Name")
	assert.Contains(t, backend.prompt, "German")
	assert.Contains(t, backend.prompt, "friendly")
	assert.Contains(t, backend.prompt, "Long (5+ paragraphs)")
}

func TestSend_LogsOnSuccess(t *testing.T) {
	t.Parallel()

	gmail := &fakeProvider{name: "gmail"}
	log := sentlog.New(filepath.Join(t.TempDir(), "sent.xlsx"))
	svc := newService(t, Deps{Sender: sender.New([]provider.Provider{gmail}), SentLog: log})

	res := svc.Send(context.Background(), sendRequest(), true)
	assert.True(t, res.OK)
	assert.True(t, res.Logged)
	assert.Empty(t, res.Warning)
	assert.Equal(t, 1, gmail.calls)

	recs, err := svc.SentLog()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "GMAIL", recs[0].Provider)
	assert.Equal(t, "you@example.org", recs[0].Recipient)
	assert.Equal(t, "Hello", recs[0].Subject)
}

func TestSend_NoLogWhenNotRequested(t *testing.T) {
	t.Parallel()

	log := sentlog.New(filepath.Join(t.TempDir(), "sent.xlsx"))
	svc := newService(t, Deps{Sender: sender.New([]provider.Provider{&fakeProvider{name: "gmail"}}), SentLog: log})

	res := svc.Send(context.Background(), sendRequest(), false)
	assert.True(t, res.OK)
	assert.False(t, res.Logged)

	recs, err := log.Records()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSend_FailureIsNotLogged(t *testing.T) {
	t.Parallel()

	log := sentlog.New(filepath.Join(t.TempDir(), "sent.xlsx"))
	gmail := &fakeProvider{name: "gmail", err: errors.New("connection refused")}
	svc := newService(t, Deps{Sender: sender.New([]provider.Provider{gmail}), SentLog: log})

	res := svc.Send(context.Background(), sendRequest(), true)
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "connection refused")
	assert.False(t, res.Logged)

	recs, err := log.Records()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSend_LogFailureIsWarning(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	m := metrics.New()
	svc := newService(t, Deps{
		Sender:  sender.New([]provider.Provider{&fakeProvider{name: "gmail"}}),
		SentLog: sentlog.New(filepath.Join(blocker, "sent.xlsx")),
		Metrics: m,
	})

	res := svc.Send(context.Background(), sendRequest(), true)
	assert.True(t, res.OK, "a log failure must not fail the send")
	assert.False(t, res.Logged)
	assert.Contains(t, res.Warning, "append sent log")

	count, err := testutil.GatherAndCount(m.Registry(), "mailscribe_log_append_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSend_LogNotConfigured(t *testing.T) {
	t.Parallel()

	svc := newService(t, Deps{Sender: sender.New([]provider.Provider{&fakeProvider{name: "gmail"}})})

	res := svc.Send(context.Background(), sendRequest(), true)
	assert.True(t, res.OK)
	assert.False(t, res.Logged)
	assert.NotEmpty(t, res.Warning)

	recs, err := svc.SentLog()
	require.NoError(t, err)
	assert.Nil(t, recs)
}

func TestSend_Unsupported(t *testing.T) {
	t.Parallel()

	gmail := &fakeProvider{name: "gmail"}
	svc := newService(t, Deps{Sender: sender.New([]provider.Provider{gmail})})

	req := sendRequest()
	req.Provider = "yahoo"
	res := svc.Send(context.Background(), req, true)
	assert.False(t, res.OK)
	assert.Equal(t, sender.UnsupportedProvider, res.Error)
	assert.Zero(t, gmail.calls)
}

func TestSettings_CorruptFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{not yaml"), 0o644))

	svc := newService(t, Deps{Settings: store.NewSettingsStore(path)})
	assert.Equal(t, store.DefaultSettings(), svc.Settings())
}

func TestAccessors(t *testing.T) {
	t.Parallel()

	svc := newService(t, Deps{Sender: sender.New([]provider.Provider{&fakeProvider{name: "outlook"}, &fakeProvider{name: "gmail"}})})
	assert.Equal(t, []email.Provider{email.ProviderGmail, email.ProviderOutlook}, svc.Providers())
	assert.Equal(t, draft.OfflineBackend, svc.BackendName())
	assert.True(t, svc.Profile().IsEmpty())
}
