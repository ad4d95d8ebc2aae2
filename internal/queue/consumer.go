package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// JobHandler resolves one job. A returned error nacks the delivery into
// the dead-letter queue.
type JobHandler func(ctx context.Context, jobID string) error

// Consumer drains ask jobs with a fixed-size worker pool. It has to live
// in the same process as the session store, so it is run as a goroutine
// next to the HTTP server rather than as a separate binary.
type Consumer struct {
	conn        *amqp.Connection
	ch          *amqp.Channel
	queue       string
	concurrency int
	handle      JobHandler
	log         *zap.Logger
}

func NewConsumer(url, queue string, concurrency int, handle JobHandler, log *zap.Logger) (*Consumer, error) {
	if concurrency <= 0 {
		concurrency = 2
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := declareTopology(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Qos(concurrency, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Consumer{
		conn:        conn,
		ch:          ch,
		queue:       queue,
		concurrency: concurrency,
		handle:      handle,
		log:         log,
	}, nil
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Run blocks until ctx is cancelled, dispatching deliveries to the pool.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	c.log.Info("job consumer started",
		zap.String("queue", c.queue), zap.Int("concurrency", c.concurrency))

	jobs := make(chan amqp.Delivery, c.concurrency*2)

	var wg sync.WaitGroup
	wg.Add(c.concurrency)
	for i := 0; i < c.concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				c.handleDelivery(ctx, workerID, d)
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			c.log.Info("job consumer shutting down")
			close(jobs)
			wg.Wait()
			return nil

		case d, ok := <-msgs:
			if !ok {
				c.log.Warn("delivery channel closed")
				close(jobs)
				wg.Wait()
				return nil
			}
			jobs <- d
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, workerID int, d amqp.Delivery) {
	var m jobMessage
	if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
		c.log.Warn("bad job message", zap.Int("worker", workerID), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	if err := c.handle(ctx, m.JobID); err != nil {
		c.log.Warn("job failed",
			zap.Int("worker", workerID),
			zap.String("job_id", m.JobID),
			zap.Duration("cost", time.Since(start)),
			zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := d.Ack(false); err != nil {
		c.log.Warn("ack failed", zap.Int("worker", workerID), zap.String("job_id", m.JobID), zap.Error(err))
	}
}
