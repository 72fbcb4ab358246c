package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EnrollmentPayload is the job the approval flow hands to the worker.
// Identity is all the committer needs; company and origin are for logs.
type EnrollmentPayload struct {
	Identity string `json:"identity"`
	Company  string `json:"company,omitempty"`
	Origin   string `json:"origin,omitempty"`
}

type RabbitMQProducer struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewProducer(conn *amqp.Connection, ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{Conn: conn, Ch: ch}
}

func (p *RabbitMQProducer) PublishEnrollment(ctx context.Context, payload EnrollmentPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("enrollment payload marshal failed: %v", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    uuid.New().String(),
			Body:         body,
			DeliveryMode: amqp.Persistent, // survives a broker restart
		},
	)
	if err != nil {
		return fmt.Errorf("rabbitmq publish failed: %v", err)
	}

	return nil
}
