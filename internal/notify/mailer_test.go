package notify

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/account-console/internal/config"
)

func TestMailerSend(t *testing.T) {
	var (
		gotFrom string
		gotTo   []string
		raw     bytes.Buffer
	)
	sender := gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		gotFrom = from
		gotTo = to
		_, err := msg.WriteTo(&raw)
		return err
	})

	m := NewMailerWithSender("console@example.com", sender)
	err := m.Send(Email{To: []string{"taro@example.com"}, Subject: "Account suspended", Body: "reason: fraud review"})
	require.NoError(t, err)

	assert.Equal(t, "console@example.com", gotFrom)
	assert.Equal(t, []string{"taro@example.com"}, gotTo)
	assert.Contains(t, raw.String(), "Subject: Account suspended")
	assert.Contains(t, raw.String(), "reason: fraud review")
}

func TestMailerErrors(t *testing.T) {
	failing := gomail.SendFunc(func(string, []string, io.WriterTo) error {
		return errors.New("connection refused")
	})
	m := NewMailerWithSender("console@example.com", failing)

	assert.Error(t, m.Send(Email{Subject: "no recipients"}))

	err := m.Send(Email{To: []string{"a@b.co"}, Subject: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewSenderDisabled(t *testing.T) {
	s := NewSender(config.NotificationConfig{}, zap.NewNop())
	_, ok := s.(*LogSender)
	require.True(t, ok)
	assert.NoError(t, s.Send(Email{To: []string{"a@b.co"}}))
}
