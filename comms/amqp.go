package comms

import (
	"context"
	"encoding/json"
	"log"

	"github.com/streadway/amqp"
)

const (
	exchangeCtrl = "motordriver_ctrl"

	// ContentType marks a JSON encoded Cmd body.
	ContentType = "application/json"
)

// Consumer takes commands published to the control exchange and hands them to
// a command processor.
type Consumer struct {
	processor CommandProcessor
	conn      *amqp.Connection
	ch        *amqp.Channel
	ctrlQueue amqp.Queue
}

// DialConsumer connects to the broker and binds a private queue to the control
// exchange.
func DialConsumer(url string, processor CommandProcessor) (*Consumer, error) {
	var err error
	c := &Consumer{processor: processor}

	c.conn, err = amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	c.ch, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return nil, err
	}

	err = c.ch.ExchangeDeclare(
		exchangeCtrl, // name
		"fanout",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.ctrlQueue, err = c.ch.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		c.Close()
		return nil, err
	}

	err = c.ch.QueueBind(
		c.ctrlQueue.Name, // queue name
		"",               // routing key
		exchangeCtrl,     // exchange
		false,
		nil)
	if err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

// Run consumes commands until ctx is done or the broker closes the channel.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(
		c.ctrlQueue.Name, // queue
		"",               // consumer
		true,             // auto-ack
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,              // args
	)
	if err != nil {
		return err
	}
	log.Printf("consuming commands from %s", exchangeCtrl)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return amqp.ErrClosed
			}
			c.handleDelivery(d)
		}
	}
}

func (c *Consumer) handleDelivery(d amqp.Delivery) {
	if d.ContentType != "" && d.ContentType != ContentType {
		log.Printf("Received unexpected message type %q: %s", d.ContentType, d.Body)
		return
	}

	var cmd Cmd
	if err := json.Unmarshal(d.Body, &cmd); err != nil {
		log.Printf("Received malformed command: %s", d.Body)
		return
	}

	if err := c.processor.ProcessCommand(cmd); err != nil {
		log.Printf("command %v failed: %v", cmd, err)
		return
	}
	log.Printf("command %v done", cmd)
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		c.ch.Close()
	}
	return c.conn.Close()
}
