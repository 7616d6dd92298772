package smtptest

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/shineum/mailscribe/internal/message"
)

// Session states.
const (
	stateConnected = iota
	stateGreeted
	stateAuthOK
	stateMailFrom
	stateRcptTo
)

const idleTimeout = 10 * time.Second

const maxMessageSize = 10 * 1024 * 1024

type session struct {
	srv    *Server
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	state  int

	tlsActive bool
	authUser  string
	mechanism string

	mailFrom string
	smtpUTF8 bool
	body     string
	rcptTo   []string
}

func newSession(srv *Server, conn net.Conn) *session {
	return &session{
		srv:    srv,
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		state:  stateConnected,
	}
}

func (s *session) handle() {
	defer s.conn.Close()

	s.writeLine("220 %s ESMTP smtptest", s.srv.config.Hostname)

	for {
		if err := s.conn.SetDeadline(time.Now().Add(idleTimeout)); err != nil {
			return
		}

		line, err := s.readLine()
		if err != nil {
			if err != io.EOF {
				slog.Debug("smtptest: read error", "error", err)
			}
			return
		}
		if line == "" {
			continue
		}

		cmd, arg := parseCommand(line)
		if s.handleCommand(cmd, arg) {
			return
		}
	}
}

func (s *session) handleCommand(cmd, arg string) bool {
	switch cmd {
	case "EHLO", "HELO":
		s.handleEHLO(cmd, arg)
	case "STARTTLS":
		s.handleSTARTTLS()
	case "AUTH":
		s.handleAUTH(arg)
	case "MAIL":
		s.handleMAIL(arg)
	case "RCPT":
		s.handleRCPT(arg)
	case "DATA":
		s.handleDATA()
	case "RSET":
		s.resetTransaction()
		s.writeLine("250 OK")
	case "NOOP":
		s.writeLine("250 OK")
	case "QUIT":
		s.writeLine("221 Bye")
		return true
	default:
		s.writeLine("500 Unrecognized command")
	}
	return false
}

func (s *session) capabilities() []string {
	cfg := s.srv.config
	var caps []string
	if !cfg.DisableSTARTTLS && !s.tlsActive {
		caps = append(caps, "STARTTLS")
	}
	if s.tlsActive || cfg.DisableSTARTTLS {
		caps = append(caps, "AUTH "+strings.Join(cfg.AuthMechanisms, " "))
	}
	if !cfg.DisableSMTPUTF8 {
		caps = append(caps, "8BITMIME", "SMTPUTF8")
	}
	caps = append(caps, fmt.Sprintf("SIZE %d", maxMessageSize))
	return caps
}

func (s *session) handleEHLO(cmd, arg string) {
	if arg == "" {
		s.writeLine("501 Syntax: %s hostname", cmd)
		return
	}

	s.state = stateGreeted
	if cmd == "HELO" {
		s.writeLine("250 %s Hello %s", s.srv.config.Hostname, arg)
		return
	}

	s.writeLine("250-%s Hello %s", s.srv.config.Hostname, arg)
	caps := s.capabilities()
	for i, c := range caps {
		if i == len(caps)-1 {
			s.writeLine("250 %s", c)
		} else {
			s.writeLine("250-%s", c)
		}
	}
}

func (s *session) handleSTARTTLS() {
	if s.srv.config.DisableSTARTTLS {
		s.writeLine("454 TLS not available")
		return
	}
	if s.tlsActive {
		s.writeLine("454 TLS already active")
		return
	}

	s.writeLine("220 Ready to start TLS")

	tlsConn := tls.Server(s.conn, s.srv.tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		slog.Debug("smtptest: TLS handshake failed", "error", err)
		return
	}

	s.conn = tlsConn
	s.reader = bufio.NewReader(tlsConn)
	s.writer = bufio.NewWriter(tlsConn)
	s.tlsActive = true
	s.state = stateConnected
}

func (s *session) handleAUTH(arg string) {
	if s.state < stateGreeted {
		s.writeLine("503 Send EHLO/HELO first")
		return
	}
	if !s.tlsActive && !s.srv.config.DisableSTARTTLS {
		s.writeLine("538 Encryption required for requested authentication mechanism")
		return
	}

	mechanism, initial, _ := strings.Cut(arg, " ")
	mechanism = strings.ToUpper(mechanism)
	if !s.advertises(mechanism) {
		s.writeLine("504 Unrecognized authentication type")
		return
	}

	var (
		user string
		err  error
	)
	switch mechanism {
	case "PLAIN":
		user, err = s.authPlain(initial)
	case "LOGIN":
		user, err = s.authLogin(initial)
	}
	if err != nil {
		s.writeLine("535 5.7.8 Authentication credentials invalid")
		return
	}

	s.authUser = user
	s.mechanism = mechanism
	s.state = stateAuthOK
	s.writeLine("235 Authentication successful")
}

func (s *session) advertises(mechanism string) bool {
	for _, m := range s.srv.config.AuthMechanisms {
		if strings.EqualFold(m, mechanism) {
			return true
		}
	}
	return false
}

func (s *session) authPlain(initial string) (string, error) {
	encoded := initial
	if encoded == "" {
		s.writeLine("334 ")
		line, err := s.readLine()
		if err != nil {
			return "", err
		}
		encoded = line
	}
	return s.srv.auth.verifyPlain(encoded)
}

func (s *session) authLogin(initial string) (string, error) {
	encodedUser := initial
	if encodedUser == "" {
		s.writeLine("334 VXNlcm5hbWU6")
		line, err := s.readLine()
		if err != nil {
			return "", err
		}
		encodedUser = line
	}

	s.writeLine("334 UGFzc3dvcmQ6")
	encodedPass, err := s.readLine()
	if err != nil {
		return "", err
	}
	return s.srv.auth.verifyLogin(encodedUser, encodedPass)
}

func (s *session) handleMAIL(arg string) {
	if s.state < stateAuthOK {
		s.writeLine("530 Authentication required")
		return
	}

	if !strings.HasPrefix(strings.ToUpper(arg), "FROM:") {
		s.writeLine("501 Syntax: MAIL FROM:<address>")
		return
	}

	addr, params := splitPath(arg[5:])
	if addr == "" {
		s.writeLine("501 Syntax: MAIL FROM:<address>")
		return
	}

	s.resetTransaction()
	for _, p := range params {
		key, value, _ := strings.Cut(p, "=")
		switch strings.ToUpper(key) {
		case "SMTPUTF8":
			s.smtpUTF8 = true
		case "BODY":
			s.body = strings.ToUpper(value)
		}
	}
	s.mailFrom = addr
	s.state = stateMailFrom
	s.writeLine("250 OK")
}

func (s *session) handleRCPT(arg string) {
	if s.state < stateMailFrom {
		s.writeLine("503 Send MAIL FROM first")
		return
	}
	if !strings.HasPrefix(strings.ToUpper(arg), "TO:") {
		s.writeLine("501 Syntax: RCPT TO:<address>")
		return
	}

	addr, _ := splitPath(arg[3:])
	if addr == "" {
		s.writeLine("501 Syntax: RCPT TO:<address>")
		return
	}
	if reject := s.srv.config.RejectRecipient; reject != "" && strings.EqualFold(addr, reject) {
		s.writeLine("550 5.1.1 Mailbox unavailable")
		return
	}

	s.rcptTo = append(s.rcptTo, addr)
	s.state = stateRcptTo
	s.writeLine("250 OK")
}

func (s *session) handleDATA() {
	if s.state < stateRcptTo {
		s.writeLine("503 Send RCPT TO first")
		return
	}

	s.writeLine("354 Start mail input; end with <CRLF>.<CRLF>")

	var data strings.Builder
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			slog.Debug("smtptest: error reading DATA", "error", err)
			return
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "." {
			break
		}
		if strings.HasPrefix(trimmed, "..") {
			line = line[1:]
		}
		data.WriteString(line)
	}

	if s.srv.config.RejectData {
		s.writeLine("554 5.7.1 Message rejected")
		s.resetTransaction()
		return
	}

	raw := []byte(data.String())
	parsed, err := message.Parse(raw)
	if err != nil {
		slog.Debug("smtptest: message did not parse", "error", err)
		parsed = nil
	}

	s.srv.record(Message{
		From:      s.mailFrom,
		To:        s.rcptTo,
		SMTPUTF8:  s.smtpUTF8,
		Body:      s.body,
		TLS:       s.tlsActive,
		AuthUser:  s.authUser,
		Mechanism: s.mechanism,
		Data:      raw,
		Parsed:    parsed,
	})

	s.writeLine("250 OK message accepted")
	s.resetTransaction()
}

func (s *session) resetTransaction() {
	s.mailFrom = ""
	s.rcptTo = nil
	s.smtpUTF8 = false
	s.body = ""
	if s.state > stateAuthOK {
		s.state = stateAuthOK
	}
}

func (s *session) readLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *session) writeLine(format string, args ...any) {
	if _, err := fmt.Fprintf(s.writer, format+"\r\n", args...); err != nil {
		slog.Debug("smtptest: write failed", "error", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		slog.Debug("smtptest: flush failed", "error", err)
	}
}

func parseCommand(line string) (string, string) {
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToUpper(cmd), arg
}

// splitPath separates "<addr> PARAM=VALUE ..." into the address and its
// ESMTP parameters.
func splitPath(s string) (string, []string) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") {
		end := strings.Index(s, ">")
		if end < 0 {
			return "", nil
		}
		return s[1:end], strings.Fields(s[end+1:])
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
