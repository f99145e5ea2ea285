package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/toko-pricing/internal/db"
)

// WebhookNotifier posts each event to a single HTTP endpoint. Requests carry
// X-Event-ID, X-Timestamp and an X-Signature header computed by Sign.
type WebhookNotifier struct {
	URL    string
	Secret string
	Client *http.Client
	Now    func() time.Time
}

// NewWebhookClient returns an instrumented client for webhook delivery.
func NewWebhookClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

type webhookBody struct {
	EventID     string          `json:"eventId"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Data        json.RawMessage `json:"data"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// Notify implements Notifier. Non-2xx responses are returned as errors.
func (n WebhookNotifier) Notify(ctx context.Context, event db.DomainEvent) error {
	if n.URL == "" {
		return nil
	}
	if err := validateURL(n.URL); err != nil {
		return err
	}
	ctx, span := otel.Tracer("events.Webhook").Start(ctx, "WebhookNotifier.Notify")
	defer span.End()

	now := time.Now()
	if n.Now != nil {
		now = n.Now()
	}
	occurred := now
	if event.OccurredAt.Valid {
		occurred = event.OccurredAt.Time
	}
	eventID := pgUUID(event.ID)
	span.SetAttributes(attribute.String("event.topic", event.Topic), attribute.String("event.id", eventID))

	body, err := json.Marshal(webhookBody{
		EventID:     eventID,
		Topic:       event.Topic,
		AggregateID: pgUUID(event.AggregateID),
		Data:        json.RawMessage(event.Payload),
		OccurredAt:  occurred,
	})
	if err != nil {
		return err
	}
	ts := now.Unix()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", eventID)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Signature", Sign(n.Secret, ts, eventID, body))

	client := n.Client
	if client == nil {
		client = NewWebhookClient(0)
	}
	resp, err := client.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("events: deliver webhook: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("events: webhook responded %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 of "<ts>.<eventID>.<body>" keyed by secret.
func Sign(secret string, ts int64, eventID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(eventID))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("events: invalid webhook url: %w", err)
	}
	if parsed.Host == "" {
		return errors.New("events: webhook url must include host")
	}
	switch parsed.Scheme {
	case "https":
		return nil
	case "http":
		if host := parsed.Hostname(); host == "localhost" || host == "127.0.0.1" {
			return nil
		}
		return errors.New("events: plain http webhooks are only allowed for localhost")
	default:
		return errors.New("events: webhook url must be http or https")
	}
}

func pgUUID(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
