package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/signing"

	dom "proofwork/internal/services/outbox/domain"
)

// Mux routes events to in-process handlers by topic
// Unregistered topics deliver as a no-op so producers never block on
// consumers that do not exist yet
type Mux struct {
	handlers map[string][]func(ctx context.Context, ev dom.Event) error
	fallback dom.Sink
}

// NewMux builds an empty in-process sink
// fallback, when non-nil, receives every event after local handlers run
func NewMux(fallback dom.Sink) *Mux {
	return &Mux{
		handlers: make(map[string][]func(ctx context.Context, ev dom.Event) error),
		fallback: fallback,
	}
}

// Handle registers a handler for a topic
func (m *Mux) Handle(topic string, fn func(ctx context.Context, ev dom.Event) error) {
	m.handlers[topic] = append(m.handlers[topic], fn)
}

// Deliver runs all handlers for the event's topic, then the fallback
func (m *Mux) Deliver(ctx context.Context, ev dom.Event) error {
	for _, fn := range m.handlers[ev.Topic] {
		if err := fn(ctx, ev); err != nil {
			return err
		}
	}
	if m.fallback != nil {
		return m.fallback.Deliver(ctx, ev)
	}
	return nil
}

// HTTPSink POSTs events to a webhook endpoint, signing the body so the
// receiver can authenticate us the same way we authenticate providers
type HTTPSink struct {
	Endpoint string
	Secret   string
	Client   *http.Client
}

// NewHTTPSink builds a webhook sink for the given endpoint
func NewHTTPSink(endpoint, secret string, timeout time.Duration) *HTTPSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSink{
		Endpoint: endpoint,
		Secret:   secret,
		Client:   &http.Client{Timeout: timeout},
	}
}

// Deliver POSTs the event envelope; any non-2xx response is a failure
func (s *HTTPSink) Deliver(ctx context.Context, ev dom.Event) error {
	body := fmt.Appendf(nil,
		`{"event_id":%q,"topic":%q,"created_at":%q,"payload":%s}`,
		ev.ID, ev.Topic, ev.CreatedAt.UTC().Format(time.RFC3339), string(ev.Payload),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return perr.Internalf("build webhook request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Proofwork-Event", ev.Topic)
	req.Header.Set("X-Proofwork-Delivery", ev.ID)
	if s.Secret != "" {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		req.Header.Set("X-Proofwork-Signature", signing.Sign(s.Secret, ts, body))
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return perr.Unavailablef("webhook post: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return perr.Unavailablef("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}
