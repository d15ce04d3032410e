package comms

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/streadway/amqp"
)

type mockProcessor struct {
	cmds []Cmd
	err  error
}

func (p *mockProcessor) ProcessCommand(cmd Cmd) error {
	p.cmds = append(p.cmds, cmd)
	return p.err
}

func TestConsumerDelivery(t *testing.T) {
	Convey("deliveries are decoded into commands", t, func() {
		p := new(mockProcessor)
		c := &Consumer{processor: p}

		c.handleDelivery(amqp.Delivery{
			ContentType: ContentType,
			Body:        []byte(`{"cmd":"motor_run","name":"A","direction":"forward","value":800}`),
		})
		So(p.cmds, ShouldResemble, []Cmd{{Cmd: "motor_run", Name: "A", Direction: "forward", Value: 800}})

		Convey("an empty content type is accepted", func() {
			c.handleDelivery(amqp.Delivery{Body: []byte(`{"cmd":"motor_stop","name":"A"}`)})
			So(len(p.cmds), ShouldEqual, 2)
		})

		Convey("foreign and malformed bodies are dropped", func() {
			c.handleDelivery(amqp.Delivery{ContentType: "application/dcmotor_forward", Body: []byte{0, 0, 0, 1}})
			c.handleDelivery(amqp.Delivery{ContentType: ContentType, Body: []byte("motor_run A")})
			So(len(p.cmds), ShouldEqual, 1)
		})

		Convey("a failing command does not stop later ones", func() {
			p.err = errors.New("bridge offline")
			c.handleDelivery(amqp.Delivery{Body: []byte(`{"cmd":"servo_zero","name":"S0"}`)})
			p.err = nil
			c.handleDelivery(amqp.Delivery{Body: []byte(`{"cmd":"servo_full","name":"S0"}`)})
			So(len(p.cmds), ShouldEqual, 3)
		})
	})
}
