package testhelpers

import (
	"context"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

type TestRabbitMQ struct {
	Container *rabbitmq.RabbitMQContainer
	Conn      *amqp.Connection
	URL       string
}

// NewTestRabbitMQ starts a disposable RabbitMQ container and opens a
// connection to it.
func NewTestRabbitMQ(t *testing.T) *TestRabbitMQ {
	t.Helper()
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.13-alpine")
	if err != nil {
		t.Fatalf("failed to start rabbitmq container: %s", err)
	}

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("failed to get amqp url: %s", err)
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		t.Fatalf("failed to connect to rabbitmq: %s", err)
	}

	return &TestRabbitMQ{
		Container: container,
		Conn:      conn,
		URL:       amqpURL,
	}
}

func (tr *TestRabbitMQ) Close() {
	ctx := context.Background()
	_ = tr.Conn.Close()
	if termErr := tr.Container.Terminate(ctx); termErr != nil {
		fmt.Printf("failed to terminate container: %v\n", termErr)
	}
}
