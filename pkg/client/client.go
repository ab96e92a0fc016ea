package client

import (
	"context"
	"time"

	"dogfordate/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const disconnectTimeout = 10 * time.Second

// Closer is implemented by long-lived connections (Kafka producers and
// consumers) that should be released on shutdown.
type Closer interface {
	Close() error
}

type Client struct {
	Mongo   *mongo.Client
	closers []namedCloser
}

type namedCloser struct {
	name   string
	closer Closer
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", "error", err)
	}

	log.Info("Successfully connected to MongoDB")
	c.Mongo = client
}

// Track registers a connection to be closed by GracefulShutdown, in reverse
// registration order.
func (c *Client) Track(name string, closer Closer) {
	if closer == nil {
		return
	}
	c.closers = append(c.closers, namedCloser{name: name, closer: closer})
}

func (c *Client) GracefulShutdown(log *logger.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		nc := c.closers[i]
		if err := nc.closer.Close(); err != nil {
			log.Error("Failed to close connection", "name", nc.name, "error", err)
		}
	}
	c.closers = nil

	if c.Mongo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := c.Mongo.Disconnect(ctx); err != nil {
		log.Error("Failed to disconnect from MongoDB", "error", err)
		return
	}
	log.Info("Disconnected from MongoDB")
}
