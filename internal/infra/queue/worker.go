package queue

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EnrollmentExecutor runs the committer for one lead. Calling it twice
// with the same identity is safe: the claim and the enrollment ref make
// redelivery a no-op.
type EnrollmentExecutor interface {
	Execute(ctx context.Context, identity string) error
}

type Worker struct {
	Channel  *amqp.Channel
	Enroller EnrollmentExecutor
}

func NewWorker(ch *amqp.Channel, enroller EnrollmentExecutor) *Worker {
	return &Worker{Channel: ch, Enroller: enroller}
}

func (w *Worker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		log.Fatalf("❌ [WORKER] RabbitMQ consumer registration failed: %s", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var payload EnrollmentPayload
			if err := json.Unmarshal(d.Body, &payload); err != nil {
				log.Printf("❌ [WORKER] Poison message, sending to DLQ: %s", err)
				d.Nack(false, false)
				continue
			}

			log.Printf("📥 [WORKER] Enrollment job for %s (%s)", payload.Company, payload.Origin)

			// The committer owns its own retry budget and records
			// FAILED itself, so a non-nil error here is infrastructure
			// trouble (db down). Dead-letter it; the DLQ is the manual
			// re-drive path.
			if err := w.Enroller.Execute(context.Background(), payload.Identity); err != nil {
				log.Printf("❌ [WORKER] Enrollment execution failed: %s", err)
				d.Nack(false, false)
			} else {
				d.Ack(false)
			}
		}
	}()

	log.Printf(" [*] Worker running, waiting on queue '%s'", queueName)
	<-forever
}
