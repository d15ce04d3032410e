package hardware

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSimulatedHALLog(t *testing.T) {
	Convey("the write log stays bounded on a long run", t, func() {
		hal, d := createTestDriver()
		a := DefaultBindings().Motors[MotorA]

		// a minute of 20ms ticks
		for i := 0; i < 3000; i++ {
			So(d.MotorRun(MotorA, Forward, i%1024), ShouldBeNil)
		}

		calls := hal.Calls()
		So(len(calls), ShouldEqual, DefaultMaxCalls)
		So(len(hal.calls), ShouldBeLessThan, 2*DefaultMaxCalls)

		Convey("keeping the newest writes", func() {
			So(calls[len(calls)-1], ShouldResemble, Call{CallDigital, a.IN2, High})
			So(calls[len(calls)-3], ShouldResemble, Call{CallDuty, a.PWM, 2999 % 1024})
		})

		Convey("pin state is unaffected by trimming", func() {
			So(hal.Duty(a.PWM), ShouldEqual, 2999%1024)
			So(hal.Period(a.PWM), ShouldEqual, MotorPWMPeriod)
		})
	})

	Convey("a zero limit keeps every write", t, func() {
		hal, d := createTestDriver()
		hal.MaxCalls = 0

		for i := 0; i < 2000; i++ {
			So(d.MotorStop(MotorB), ShouldBeNil)
		}
		So(len(hal.Calls()), ShouldEqual, 2000)
	})
}
