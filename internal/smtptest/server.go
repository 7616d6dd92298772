// Package smtptest provides an in-process SMTP submission server for tests.
// It speaks enough ESMTP (STARTTLS, AUTH PLAIN/LOGIN, SMTPUTF8, 8BITMIME) to
// exercise a real client end to end and records every accepted message.
package smtptest

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/shineum/mailscribe/internal/message"
)

// shutdownTimeout bounds how long Close waits for in-flight sessions.
const shutdownTimeout = 5 * time.Second

// Config controls the capabilities and failure modes of a Server.
type Config struct {
	// Hostname is used in the greeting and EHLO responses.
	Hostname string

	// Username and Password are the only accepted AUTH credentials.
	Username string
	Password string

	// AuthMechanisms is the advertised AUTH list. Defaults to PLAIN LOGIN.
	AuthMechanisms []string

	// DisableSTARTTLS stops the server from advertising STARTTLS.
	DisableSTARTTLS bool

	// DisableSMTPUTF8 stops the server from advertising SMTPUTF8 and 8BITMIME.
	DisableSMTPUTF8 bool

	// RejectRecipient is answered with 550 on RCPT TO.
	RejectRecipient string

	// RejectData makes the server answer 554 after the message body.
	RejectData bool
}

// Message is a transaction accepted by the server.
type Message struct {
	From      string
	To        []string
	SMTPUTF8  bool
	Body      string
	TLS       bool
	AuthUser  string
	Mechanism string
	Data      []byte

	// Parsed is the decoded message, nil if Data did not parse.
	Parsed *message.Parsed
}

// Server is an SMTP server bound to a loopback port.
type Server struct {
	config    Config
	auth      *authenticator
	tlsConfig *tls.Config
	clientTLS *tls.Config
	listener  net.Listener

	mu       sync.Mutex
	messages []Message
	sessions int

	wg sync.WaitGroup
}

// NewServer creates a Server with a fresh self-signed certificate and starts
// accepting connections on 127.0.0.1.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Hostname == "" {
		cfg.Hostname = "localhost"
	}
	if len(cfg.AuthMechanisms) == 0 {
		cfg.AuthMechanisms = []string{"PLAIN", "LOGIN"}
	}

	cert, pool, err := generateCert()
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	s := &Server{
		config: cfg,
		auth:   &authenticator{username: cfg.Username, password: cfg.Password},
		tlsConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
		clientTLS: &tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		},
		listener: ln,
	}

	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.sessions++
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			newSession(s, conn).handle()
		}()
	}
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// ClientTLSConfig returns a client configuration that trusts the server's
// certificate.
func (s *Server) ClientTLSConfig() *tls.Config {
	return s.clientTLS.Clone()
}

// Messages returns a copy of the accepted messages in arrival order.
func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Sessions returns the number of connections accepted so far.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// Close stops accepting connections and waits for open sessions to end.
func (s *Server) Close() error {
	err := s.listener.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		slog.Warn("smtptest: shutdown timeout reached")
	}
	return err
}

func (s *Server) record(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}
