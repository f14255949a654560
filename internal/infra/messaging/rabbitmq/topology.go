// Package rabbitmq publishes specification events to a RabbitMQ direct
// exchange and consumes worker status reports from the same exchange.
package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker topology consumed by test generation workers.
const (
	ExchangeName = "aegis-test.test-generation.exchange"
	QueueName    = "aegis-test.test-generation.started"
	RoutingKey   = "specification.started"

	StatusQueueName  = "aegis-test.test-generation.status"
	StatusRoutingKey = "specification.status"
)

// TopologyChannel is the subset of *amqp.Channel needed to declare topology.
type TopologyChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// DeclareTopology idempotently declares the durable direct exchange, the
// durable work and status queues and their bindings.
func DeclareTopology(ch TopologyChannel) error {
	if err := ch.ExchangeDeclare(ExchangeName, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring exchange %s: %w", ExchangeName, err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", QueueName, err)
	}
	if err := ch.QueueBind(QueueName, RoutingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("binding queue %s to %s: %w", QueueName, ExchangeName, err)
	}
	if _, err := ch.QueueDeclare(StatusQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", StatusQueueName, err)
	}
	if err := ch.QueueBind(StatusQueueName, StatusRoutingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("binding queue %s to %s: %w", StatusQueueName, ExchangeName, err)
	}
	return nil
}
