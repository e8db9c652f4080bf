package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
)

const defaultMaxInFlight = 10

// Consumer читает одну очередь и передаёт тела сообщений обработчику.
//
// Сообщения обрабатываются параллельно, не более maxInFlight одновременно.
// Ошибка или паника обработчика возвращает сообщение в очередь один раз,
// при повторной неудаче оно отбрасывается.
type Consumer struct {
	queue       string
	tag         string
	handler     func([]byte) error
	maxInFlight int
	log         *slog.Logger
	wg          sync.WaitGroup
}

// NewConsumer создаёт потребителя очереди queue.
func NewConsumer(queue string, handler func([]byte) error, log *slog.Logger) *Consumer {
	return &Consumer{
		queue:       queue,
		tag:         "sender." + queue,
		handler:     handler,
		maxInFlight: defaultMaxInFlight,
		log:         log.With(slog.String("queue", queue)),
	}
}

// Start подписывается на очередь и возвращается сразу. Подписка снимается
// при отмене ctx; дождаться обработки уже полученных сообщений можно через Wait.
func (c *Consumer) Start(ctx context.Context, ch *amqp.Channel) error {
	const op = "rabbitmq.Consumer.Start"

	// Брокер не отдаёт больше сообщений, чем мы готовы обработать одновременно.
	if err := ch.Qos(c.maxInFlight, 0, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	deliveries, err := ch.Consume(c.queue, c.tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if err := ch.Cancel(c.tag, false); err != nil {
				c.log.Warn("failed to cancel consumer", sl.Err(err))
			}
		case <-done:
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)

		sem := make(chan struct{}, c.maxInFlight)
		for d := range deliveries {
			sem <- struct{}{}
			c.wg.Add(1)
			go func(d amqp.Delivery) {
				defer func() {
					<-sem
					c.wg.Done()
				}()
				c.handle(d)
			}(d)
		}
	}()
	return nil
}

// Wait блокируется, пока подписка не снята и все полученные сообщения не обработаны.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) handle(d amqp.Delivery) {
	err := c.safeHandle(d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			c.log.Error("failed to ack message", sl.Err(ackErr))
		}
		return
	}

	requeue := !d.Redelivered
	c.log.Error("failed to handle message", sl.Err(err), slog.Bool("requeue", requeue))
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		c.log.Error("failed to nack message", sl.Err(nackErr))
	}
}

func (c *Consumer) safeHandle(body []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return c.handler(body)
}
