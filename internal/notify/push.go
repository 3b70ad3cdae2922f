// README: Firebase Cloud Messaging notifier; users without a device token are skipped.
package notify

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"

	"pickmeup/internal/types"
)

// pushSender is satisfied by *messaging.Client.
type pushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type Push struct {
	client pushSender
	log    logrus.FieldLogger
}

func NewPush(client *messaging.Client, log logrus.FieldLogger) *Push {
	return newPush(client, log)
}

func newPush(client pushSender, log logrus.FieldLogger) *Push {
	return &Push{client: client, log: log.WithField("notifier", "push")}
}

func (p *Push) NotifyRequestReceived(ctx context.Context, m RequestReceived) error {
	body := fmt.Sprintf("%s %s wants a ride from %s to %s", m.Requester.FirstName, m.Requester.LastName, m.DepartureAddress, m.DestinationAddress)
	return p.send(ctx, m.Owner, "New pick-up request", body, map[string]string{
		"type":         "request_received",
		"requester_id": m.Requester.UserID.String(),
	})
}

func (p *Push) NotifyRequestStatusChanged(ctx context.Context, m StatusChanged) error {
	title := "Request rejected"
	if m.Status == types.RequestAccepted {
		title = "Request accepted"
	}
	body := fmt.Sprintf("%s to %s", m.DepartureAddress, m.DestinationAddress)
	return p.send(ctx, m.Requester, title, body, map[string]string{
		"type":   "request_status_changed",
		"status": string(m.Status),
	})
}

func (p *Push) NotifyRequestCancelled(ctx context.Context, m RequestCancelled) error {
	body := fmt.Sprintf("%s %s left your travel to %s", m.Requester.FirstName, m.Requester.LastName, m.DestinationAddress)
	return p.send(ctx, m.Owner, "Request cancelled", body, map[string]string{
		"type":         "request_cancelled",
		"requester_id": m.Requester.UserID.String(),
	})
}

func (p *Push) send(ctx context.Context, to types.Contact, title, body string, data map[string]string) error {
	if to.DeviceToken == "" {
		return nil
	}
	msg := &messaging.Message{
		Token: to.DeviceToken,
		Data:  data,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	}
	id, err := p.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("push to user %s: %w", to.UserID, err)
	}
	p.log.WithFields(logrus.Fields{"user_id": to.UserID, "message_id": id}).Debug("push sent")
	return nil
}
