package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Notification channel identifiers.
const (
	ChannelProgress = "scan_progress"
	ChannelResult   = "scan_result"
)

// Notification is one progress or result message for a user.
type Notification struct {
	Channel  string    `json:"channel"`
	OwnerID  string    `json:"ownerId,omitempty"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	SentAt   time.Time `json:"sentAt"`
}

// Notifier posts notifications. Delivery problems are the notifier's own business and never
// reach the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) {
	slog.InfoContext(ctx, n.Message, "channel", n.Channel, "ownerId", n.OwnerID, "filename", n.Filename, "title", n.Title)
}

// CloudEventNotifier delivers notifications as CloudEvents to a push gateway.
type CloudEventNotifier struct {
	client cloudevents.Client
	sink   string
	source string
}

// NewCloudEventNotifier creates a notifier sending HTTP CloudEvents to sink.
func NewCloudEventNotifier(sink, source string) (*CloudEventNotifier, error) {
	if sink == "" {
		return nil, fmt.Errorf("notification sink must be provided")
	}
	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudevents client: %w", err)
	}
	return &CloudEventNotifier{client: client, sink: sink, source: source}, nil
}

func (c *CloudEventNotifier) Notify(ctx context.Context, n Notification) {
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(c.source)
	event.SetType("scanshare.notification." + n.Channel)
	event.SetSubject(n.OwnerID)
	event.SetTime(n.SentAt)
	if err := event.SetData(cloudevents.ApplicationJSON, n); err != nil {
		slog.Error("Failed to encode notification", "channel", n.Channel, "error", err)
		return
	}

	result := c.client.Send(cloudevents.ContextWithTarget(ctx, c.sink), event)
	if cloudevents.IsUndelivered(result) {
		slog.Warn("Notification was not delivered.", "channel", n.Channel, "filename", n.Filename, "error", result)
		return
	}
	if !cloudevents.IsACK(result) {
		slog.Warn("Notification was rejected by the push gateway.", "channel", n.Channel, "filename", n.Filename, "result", result)
	}
}
