package pubsub

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
)

// Client publishes a message to a topic and blocks until the server assigns
// it an ID or rejects it.
type Client interface {
	Publish(ctx context.Context, topic string, msg *pubsub.Message) (string, error)
}

var _ Client = (*GCPClient)(nil)

// GCPClient adapts *pubsub.Client to Client, caching one Topic handle per
// topic ID so batching settings and goroutines are shared across publishes.
type GCPClient struct {
	client *pubsub.Client

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewGCPClient creates a Pub/Sub client for projectID using application
// default credentials.
func NewGCPClient(ctx context.Context, projectID string) (*GCPClient, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &GCPClient{client: client, topics: make(map[string]*pubsub.Topic)}, nil
}

// Publish sends msg and waits for the publish result.
func (c *GCPClient) Publish(ctx context.Context, topicID string, msg *pubsub.Message) (string, error) {
	return c.topic(topicID).Publish(ctx, msg).Get(ctx)
}

func (c *GCPClient) topic(id string) *pubsub.Topic {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.topics[id]
	if !ok {
		t = c.client.Topic(id)
		c.topics[id] = t
	}
	return t
}

// Close flushes pending messages and releases the underlying client.
func (c *GCPClient) Close() error {
	c.mu.Lock()
	for _, t := range c.topics {
		t.Stop()
	}
	c.topics = map[string]*pubsub.Topic{}
	c.mu.Unlock()

	return c.client.Close()
}
