package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-attendance-api/pkg/config"
)

func TestSMTPMailerSend(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "smtp.test", Port: 2525, From: "noreply@uni.test"})

	var gotAddr string
	var gotTo []string
	var gotBody []byte
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotBody = addr, to, msg
		require.Equal(t, "noreply@uni.test", from)
		return nil
	}

	err := m.Send(context.Background(), Message{To: []string{"t@uni.test"}, Subject: "Hi\r\nBcc: x", Body: "body"})
	require.NoError(t, err)
	require.Equal(t, "smtp.test:2525", gotAddr)
	require.Equal(t, []string{"t@uni.test"}, gotTo)
	require.Contains(t, string(gotBody), "Subject: Hi  Bcc: x\r\n")
	require.Contains(t, string(gotBody), "\r\n\r\nbody")
}

func TestSMTPMailerRejectsEmptyRecipients(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "smtp.test", Port: 25})
	require.Error(t, m.Send(context.Background(), Message{Subject: "x"}))
}

func TestSMTPMailerWrapsRelayError(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "smtp.test", Port: 25})
	relayErr := errors.New("421 busy")
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return relayErr }

	err := m.Send(context.Background(), Message{To: []string{"a@b.c"}})
	require.ErrorIs(t, err, relayErr)
}

func TestTemplates(t *testing.T) {
	msg, err := TeacherCredentials("t@uni.test", "Ayesha", "s3cret")
	require.NoError(t, err)
	require.Contains(t, msg.Body, "s3cret")
	require.Equal(t, []string{"t@uni.test"}, msg.To)

	msg, err = PasswordResetCode("t@uni.test", "Ayesha", "123456", 10*time.Minute)
	require.NoError(t, err)
	require.Contains(t, msg.Body, "123456")
	require.Contains(t, msg.Body, "10m0s")
}

func TestNewSelectsMailer(t *testing.T) {
	require.IsType(t, &LogMailer{}, New(config.MailConfig{}, nil))
	require.IsType(t, &SMTPMailer{}, New(config.MailConfig{Enabled: true, Host: "h", Port: 1}, nil))
}
