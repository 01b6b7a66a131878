package mailer

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diagnosis/tunisia-tours/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP speaks just enough SMTP for net/smtp: no TLS, no auth.
type fakeSMTP struct {
	ln       net.Listener
	mu       sync.Mutex
	data     []string
	rcpts    []string
	failRcpt bool
	wg       sync.WaitGroup
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeSMTP{ln: ln}
	f.wg.Add(1)
	go f.serve()
	t.Cleanup(func() {
		ln.Close()
		f.wg.Wait()
	})
	return f
}

func (f *fakeSMTP) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeSMTP) serve() {
	defer f.wg.Done()
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.handle(conn)
	}
}

func (f *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	write := func(s string) { conn.Write([]byte(s + "\r\n")) }

	write("220 fake ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			write("250-fake")
			write("250 8BITMIME")
		case strings.HasPrefix(cmd, "MAIL FROM"), cmd == "NOOP", cmd == "RSET":
			write("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO"):
			f.mu.Lock()
			fail := f.failRcpt
			f.mu.Unlock()
			if fail {
				write("550 no such user")
				continue
			}
			f.mu.Lock()
			f.rcpts = append(f.rcpts, strings.TrimSpace(line))
			f.mu.Unlock()
			write("250 OK")
		case cmd == "DATA":
			write("354 go ahead")
			var body bytes.Buffer
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				body.WriteString(l)
			}
			f.mu.Lock()
			f.data = append(f.data, body.String())
			f.mu.Unlock()
			write("250 queued")
		case cmd == "QUIT":
			write("221 bye")
			return
		default:
			write("502 not implemented")
		}
	}
}

func TestSMTPMailer_VerifyAndSend(t *testing.T) {
	srv := startFakeSMTP(t)
	m := NewSMTPMailer("127.0.0.1", srv.port(), "bookings@tours.example", "Tunisia Tours Booking", "", "", false)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, m.Verify(ctx))

	id, err := m.Send(ctx, Message{
		To:      "ops@tours.example",
		Subject: "New Booking Request - Tunisia Tours",
		Text:    "plain body",
		HTML:    "<h2>html body</h2>",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@tours.example>"))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.data, 1)
	msg := srv.data[0]
	assert.Contains(t, msg, "To: <ops@tours.example>")
	assert.Contains(t, msg, "Subject: New Booking Request - Tunisia Tours")
	assert.Contains(t, msg, "Message-ID: "+id)
	assert.Contains(t, msg, "Content-Type: multipart/alternative")
	assert.Contains(t, msg, "plain body")
	assert.Contains(t, msg, "<h2>html body</h2>")
	require.Len(t, srv.rcpts, 1)
	assert.Contains(t, srv.rcpts[0], "ops@tours.example")
}

func TestSMTPMailer_RecipientRejected(t *testing.T) {
	srv := startFakeSMTP(t)
	srv.mu.Lock()
	srv.failRcpt = true
	srv.mu.Unlock()
	m := NewSMTPMailer("127.0.0.1", srv.port(), "bookings@tours.example", "", "", "", false)

	_, err := m.Send(context.Background(), Message{To: "ops@tours.example", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rcpt")
}

func TestSMTPMailer_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	m := NewSMTPMailer("127.0.0.1", port, "bookings@tours.example", "", "", "", false)
	assert.Error(t, m.Verify(context.Background()))
}

func TestSMTPMailer_EmptyRecipient(t *testing.T) {
	m := NewSMTPMailer("127.0.0.1", 1, "bookings@tours.example", "", "", "", false)
	_, err := m.Send(context.Background(), Message{To: "  "})
	assert.Error(t, err)
}

func TestNew_SelectsTransport(t *testing.T) {
	tr, err := New(config.EmailConfig{Provider: "dev"})
	require.NoError(t, err)
	assert.Equal(t, "dev", tr.Name())

	tr, err = New(config.EmailConfig{Provider: "smtp", SMTPHost: "localhost", SMTPPort: 25, FromEmail: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "smtp", tr.Name())

	_, err = New(config.EmailConfig{Provider: "mailersend"})
	assert.Error(t, err)

	tr, err = New(config.EmailConfig{Provider: "mailersend", MailerSendKey: "key", FromEmail: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "mailersend", tr.Name())

	_, err = New(config.EmailConfig{Provider: "pigeon"})
	assert.Error(t, err)
}

func TestDevMailer_WritesMessage(t *testing.T) {
	var buf bytes.Buffer
	d := NewDevMailer(&buf)

	id, err := d.Send(context.Background(), Message{To: "ops@tours.example", Subject: "hello", Text: "body " + strconv.Itoa(42)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "dev-"))
	assert.Contains(t, buf.String(), "Subject: hello")
	assert.Contains(t, buf.String(), "body 42")
}
