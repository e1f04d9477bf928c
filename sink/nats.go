package sink

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the subject merged records are published on.
const DefaultSubject = "scriptorium.records"

// Publisher is the part of a NATS connection the sink needs.
// *nats.Conn satisfies it.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// NATS publishes each batch as one JSON message.
type NATS struct {
	pub     Publisher
	subject string
}

// NewNATS creates a publishing sink. An empty subject means DefaultSubject.
func NewNATS(pub Publisher, subject string) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{pub: pub, subject: subject}
}

// Subject returns the subject batches are published on.
func (n *NATS) Subject() string {
	return n.subject
}

// Write publishes the batch.
func (n *NATS) Write(ctx context.Context, b Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, b, false); err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	if err := n.pub.Publish(n.subject, bytes.TrimRight(buf.Bytes(), "\n")); err != nil {
		return fmt.Errorf("publish to %s: %w", n.subject, err)
	}
	return nil
}

// Connect dials a NATS server, reconnecting indefinitely once connected.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return conn, nil
}
