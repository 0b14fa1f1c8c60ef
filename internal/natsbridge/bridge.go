// Package natsbridge forwards build events onto a NATS JetStream subject so
// out-of-process consumers (notification services, dashboards) can follow
// builds without holding an HTTP connection open.
package natsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/foliobuilder/internal/orchestrator"
)

const publishTimeout = 5 * time.Second

// Options configures the bridge connection.
type Options struct {
	URL           string
	SubjectPrefix string // defaults to "foliobuilder.builds"
	StreamName    string // defaults to "FOLIOBUILDER_EVENTS"
}

// Bridge publishes build events to NATS. It implements the orchestrator's
// event sink interface; publish failures are reported to the caller, which
// logs and continues.
type Bridge struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	prefix string
}

// New connects to NATS and ensures the event stream exists.
func New(opts Options) (*Bridge, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("NATS URL is required")
	}
	if opts.SubjectPrefix == "" {
		opts.SubjectPrefix = "foliobuilder.builds"
	}
	if opts.StreamName == "" {
		opts.StreamName = "FOLIOBUILDER_EVENTS"
	}

	conn, err := nats.Connect(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     opts.StreamName,
		Subjects: []string{opts.SubjectPrefix + ".>"},
		MaxAge:   24 * time.Hour,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}

	slog.Info("NATS event bridge connected",
		"url", opts.URL, "stream", opts.StreamName, "subject_prefix", opts.SubjectPrefix)

	return &Bridge{conn: conn, js: js, prefix: opts.SubjectPrefix}, nil
}

// Record implements orchestrator.EventSink.
func (b *Bridge) Record(buildID string, event orchestrator.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if _, err := b.js.Publish(ctx, subjectFor(b.prefix, buildID, event.Type), data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (b *Bridge) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

func subjectFor(prefix, buildID, eventType string) string {
	return prefix + "." + buildID + "." + eventType
}
