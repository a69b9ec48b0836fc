// Package notify publishes rollover outcomes to the chat adapter.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/streakd/internal/logfields"
	"git.home.luguber.info/inful/streakd/internal/retry"
	"git.home.luguber.info/inful/streakd/internal/streak"
)

const (
	// DefaultSubject is used when no subject is configured.
	DefaultSubject = "streakd.rollover"
	// DefaultStream is the JetStream stream that keeps announcements.
	DefaultStream = "STREAKD"
	// DefaultPublishTimeout bounds one publish including the server ack.
	DefaultPublishTimeout = 5 * time.Second

	// Announcements older than a week are of no use to the chat adapter.
	streamMaxAge = 7 * 24 * time.Hour
)

// Publisher delivers rollover outcomes.
type Publisher interface {
	PublishOutcome(ctx context.Context, out *streak.Outcome) error
	Close() error
}

// NoopPublisher drops every outcome (default when NATS is not configured).
type NoopPublisher struct{}

func (NoopPublisher) PublishOutcome(context.Context, *streak.Outcome) error { return nil }
func (NoopPublisher) Close() error                                          { return nil }

// NATSPublisher stores outcome JSON in a JetStream stream so a chat adapter
// that was offline at rollover time still receives the announcement.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	stream  string
	timeout time.Duration
	retry   retry.Policy
}

// Option configures a NATSPublisher.
type Option func(*NATSPublisher)

// WithRetry retries a failed publish with the given backoff.
func WithRetry(p retry.Policy) Option { return func(n *NATSPublisher) { n.retry = p } }

// WithPublishTimeout bounds how long a publish waits for the server ack.
func WithPublishTimeout(d time.Duration) Option { return func(n *NATSPublisher) { n.timeout = d } }

// WithStream names the JetStream stream bound to the subject.
func WithStream(name string) Option { return func(n *NATSPublisher) { n.stream = name } }

// NewNATSPublisher connects to url and makes sure the stream exists.
func NewNATSPublisher(url, subject string, opts ...Option) (*NATSPublisher, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if subject == "" {
		subject = DefaultSubject
	}

	p := &NATSPublisher{
		subject: subject,
		stream:  DefaultStream,
		timeout: DefaultPublishTimeout,
		retry:   retry.NoRetry(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}
	if p.timeout <= 0 {
		return nil, fmt.Errorf("publish timeout must be positive, got %s", p.timeout)
	}

	conn, err := nats.Connect(url,
		nats.Name("streakd"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	p.conn = conn

	p.js, err = jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	if err := p.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("NATS publisher initialized", slog.String("url", url),
		logfields.Subject(subject), slog.String("stream", p.stream))
	return p, nil
}

func (p *NATSPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        p.stream,
		Description: "streakd rollover announcements",
		Subjects:    []string{p.subject},
		Storage:     jetstream.FileStorage,
		MaxAge:      streamMaxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", p.stream, err)
	}
	return nil
}

// PublishOutcome marshals out and waits for the stream to acknowledge it.
// The run ID is the message ID, so a retried publish is stored once.
func (p *NATSPublisher) PublishOutcome(ctx context.Context, out *streak.Outcome) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	err = p.retry.Do(ctx, func(attempt int) error {
		if attempt > 0 {
			slog.Debug("Retrying outcome publish", logfields.RunID(out.RunID), slog.Int("attempt", attempt))
		}
		return p.publish(ctx, out, data)
	})
	if err != nil {
		return err
	}

	slog.Debug("Published rollover outcome", logfields.RunID(out.RunID), logfields.Subject(p.subject))
	return nil
}

func (p *NATSPublisher) publish(ctx context.Context, out *streak.Outcome, data []byte) error {
	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set("Streakd-Run-Id", out.RunID)
	msg.Header.Set("Streakd-Kind", out.Kind())

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if _, err := p.js.PublishMsg(ctx, msg, jetstream.WithMsgID(out.RunID)); err != nil {
		return fmt.Errorf("failed to publish outcome: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

// New returns a NATS publisher when url is set and a NoopPublisher otherwise.
func New(url, subject string, opts ...Option) (Publisher, error) {
	if url == "" {
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(url, subject, opts...)
}
