package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"shoplens/internal/model"
)

// AnswerPublisher enqueues served answers for asynchronous persistence so
// the request path never waits on MySQL.
type AnswerPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewAnswerPublisher(conn *amqp.Connection, queueName string) *AnswerPublisher {
	return &AnswerPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *AnswerPublisher) Publish(ctx context.Context, entry model.AnswerLog) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal answer log payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish answer log failed: %w", err)
	}
	return nil
}
