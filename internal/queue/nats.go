package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"codeberg.org/docuchat/server/internal/logger"
)

const (
	DefaultSubject = "docuchat.ingest"
	queueGroup     = "docuchat-ingesters"
)

// receives document ids taken off the subject
type Handler interface {
	Dispatch(ctx context.Context, documentID string) error
}

// spreads ingestion across replicas: every replica publishes document ids
// and one member of the queue group processes each
type NATSDispatcher struct {
	nc      *nats.Conn
	subject string
	sub     *nats.Subscription
}

func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	logger.Info("connected to nats", "url", nc.ConnectedUrl())
	return nc, nil
}

func NewNATSDispatcher(nc *nats.Conn, subject string) *NATSDispatcher {
	if subject == "" {
		subject = DefaultSubject
	}

	return &NATSDispatcher{nc: nc, subject: subject}
}

func (d *NATSDispatcher) Dispatch(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if documentID == "" {
		return errors.New("empty document id")
	}

	if err := d.nc.Publish(d.subject, []byte(documentID)); err != nil {
		return fmt.Errorf("failed to publish document %s: %w", documentID, err)
	}

	return nil
}

// joins the queue group and forwards received ids to local
func (d *NATSDispatcher) Consume(local Handler) error {
	sub, err := d.nc.QueueSubscribe(d.subject, queueGroup, func(msg *nats.Msg) {
		documentID := string(msg.Data)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := local.Dispatch(ctx, documentID); err != nil {
			logger.ErrorErr(err, "failed to hand off queued document", "document_id", documentID)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", d.subject, err)
	}

	d.sub = sub
	logger.Info("consuming ingestion queue", "subject", d.subject, "group", queueGroup)

	return nil
}

// stops receiving, letting already delivered messages finish
func (d *NATSDispatcher) Close() error {
	if d.sub == nil {
		return nil
	}

	return d.sub.Drain()
}
