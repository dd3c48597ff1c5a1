package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/account-console/internal/config"
	"github.com/spec-kit/account-console/internal/events"
	"github.com/spec-kit/account-console/internal/notify"
)

// NotificationService turns account events into emails.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     notify.Sender
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender notify.Sender, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAccountRegistered, n.handleAccountRegistered)
	n.dispatcher.Subscribe(events.EventAccountStatusChanged, n.handleAccountStatusChanged)
	n.dispatcher.Subscribe(events.EventAccountWithdrawn, n.handleAccountWithdrawn)
}

func (n *NotificationService) handleAccountRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountRegisteredPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	link := strings.TrimRight(n.cfg.BaseURL, "/") + "/confirm-email?token=" + url.QueryEscape(payload.VerificationToken)
	return n.send(event, notify.Email{
		To:      []string{payload.Email},
		Subject: "Confirm your email address",
		Body: fmt.Sprintf("Hello %s,\n\nConfirm your email address by opening the link below before %s.\n\n%s\n",
			payload.Name, payload.ExpiresAt.Format("2006-01-02 15:04 MST"), link),
	})
}

func (n *NotificationService) handleAccountStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return n.send(event, notify.Email{
		To:      []string{payload.Email},
		Subject: "Your account status changed",
		Body: fmt.Sprintf("Hello %s,\n\nYour account status changed from %s to %s.\nReason: %s\n",
			payload.Name, payload.OldStatus.Label(), payload.NewStatus.Label(), payload.Reason),
	})
}

func (n *NotificationService) handleAccountWithdrawn(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountWithdrawnPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return n.send(event, notify.Email{
		To:      []string{payload.Email},
		Subject: "Your account has been withdrawn",
		Body:    fmt.Sprintf("Hello %s,\n\nYour account has been withdrawn. Thank you for using our service.\n", payload.Name),
	})
}

func (n *NotificationService) send(event events.Event, email notify.Email) error {
	if n.sender == nil {
		return nil
	}
	n.logger.Debug("sending notification",
		zap.String("account_id", event.AccountID),
		zap.String("event_type", string(event.Type)))
	return n.sender.Send(email)
}
