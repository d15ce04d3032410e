package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CodedInternet/motordriver/comms"
	"github.com/CodedInternet/motordriver/onboard/drive"
	"github.com/CodedInternet/motordriver/onboard/hardware"
	. "github.com/smartystreets/goconvey/convey"
)

// createTestAPI wires an API to a simulated board. The drive loop, once
// started, only ticks when the returned stepper is stepped.
func createTestAPI() (*API, *hardware.SimulatedHAL, *drive.Stepper) {
	hal := hardware.NewSimulatedHAL()
	driver := hardware.NewDriver(hal, hardware.DefaultBindings())
	sticks := drive.NewLiveSticks()
	stepper := drive.NewStepper()
	supervisor := &drive.Supervisor{
		Motors:    driver,
		Scheduler: stepper,
		DeadZone:  drive.DefaultDeadZone,
		Sticks:    sticks,
		TopSpeed:  drive.DefaultTopSpeed,
	}
	conductor := &comms.Conductor{Device: driver, Sticks: sticks, Drive: supervisor}

	return &API{
		Driver:    driver,
		Conductor: conductor,
		Drive:     supervisor,
		Control:   comms.NewControlHandler(conductor),
	}, hal, stepper
}

func call(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAPI(t *testing.T) {
	pins := hardware.DefaultBindings()

	Convey("with authentication disabled", t, func() {
		api, hal, stepper := createTestAPI()
		Reset(api.Drive.Stop)
		h := api.Routes(false)

		Convey("state reports every channel", func() {
			rr := call(h, "GET", "/state", "")
			So(rr.Code, ShouldEqual, http.StatusOK)

			var s StatePayload
			So(json.Unmarshal(rr.Body.Bytes(), &s), ShouldBeNil)
			So(s.Drive.State, ShouldEqual, "idle")
			So(s.Drive.Active, ShouldBeFalse)
			So(s.Drive.TopSpeed, ShouldEqual, 1023)
			So(len(s.Motors), ShouldEqual, 2)
			So(len(s.Servos), ShouldEqual, 3)
			So(s.Session, ShouldBeEmpty)
		})

		Convey("a motor can be run and stopped", func() {
			rr := call(h, "POST", "/motors/A/run", `{"direction": "forward", "speed": 600}`)
			So(rr.Code, ShouldEqual, http.StatusOK)
			So(hal.Duty(pins.Motors[hardware.MotorA].PWM), ShouldEqual, 600)

			var s StatePayload
			So(json.Unmarshal(rr.Body.Bytes(), &s), ShouldBeNil)
			So(s.Motors[0], ShouldResemble, MotorPayload{Name: "A", Direction: "forward", Speed: 600, Running: true})

			rr = call(h, "POST", "/motors/A/stop", "")
			So(rr.Code, ShouldEqual, http.StatusOK)
			So(hal.Duty(pins.Motors[hardware.MotorA].PWM), ShouldEqual, 0)
		})

		Convey("bad motor requests are rejected", func() {
			So(call(h, "POST", "/motors/C/run", `{"direction": "forward", "speed": 600}`).Code, ShouldEqual, http.StatusNotFound)
			So(call(h, "POST", "/motors/A/run", `{"speed": 600}`).Code, ShouldEqual, http.StatusBadRequest)
			So(call(h, "POST", "/motors/A/run", `{"direction": "up", "speed": 600}`).Code, ShouldEqual, http.StatusBadRequest)
			So(hal.Calls(), ShouldBeEmpty)
		})

		Convey("servos can be positioned", func() {
			pin := pins.Servos[hardware.ServoS2]

			So(call(h, "POST", "/servos/S2/full", "").Code, ShouldEqual, http.StatusOK)
			So(hal.Pulse(pin), ShouldEqual, hardware.ServoPulseFull)

			So(call(h, "POST", "/servos/S2/angle", `{"angle": 90}`).Code, ShouldEqual, http.StatusOK)
			So(hal.Pulse(pin), ShouldEqual, 1400)

			So(call(h, "POST", "/servos/S2/angle", `{}`).Code, ShouldEqual, http.StatusBadRequest)

			So(call(h, "POST", "/servos/S2/stop", "").Code, ShouldEqual, http.StatusOK)
			So(hal.Pulse(pin), ShouldEqual, hardware.ServoReleased)
		})

		Convey("a direct motor run is left alone while no loop runs", func() {
			So(call(h, "POST", "/motors/B/run", `{"direction": "backward", "speed": 400}`).Code, ShouldEqual, http.StatusOK)
			stepper.Timeout = 50 * time.Millisecond
			So(stepper.Step(), ShouldEqual, drive.ErrStepTimeout)
			So(hal.Duty(pins.Motors[hardware.MotorB].PWM), ShouldEqual, 400)
		})

		Convey("sticks feed the drive loop once it is engaged", func() {
			So(call(h, "PUT", "/sticks", `{"x": 512, "y": 1023}`).Code, ShouldEqual, http.StatusOK)
			So(call(h, "POST", "/drive", "").Code, ShouldEqual, http.StatusOK)
			So(stepper.Step(), ShouldBeNil)
			So(hal.Duty(pins.Motors[hardware.MotorA].PWM), ShouldEqual, 1023)
			So(hal.Duty(pins.Motors[hardware.MotorB].PWM), ShouldEqual, 1023)

			So(call(h, "PUT", "/sticks", `{"x": 512}`).Code, ShouldEqual, http.StatusBadRequest)

			Convey("and stop releases the motors", func() {
				rr := call(h, "POST", "/stop", "")
				So(rr.Code, ShouldEqual, http.StatusOK)
				So(hal.Duty(pins.Motors[hardware.MotorA].PWM), ShouldEqual, 0)
				So(hal.Duty(pins.Motors[hardware.MotorB].PWM), ShouldEqual, 0)

				var s StatePayload
				So(json.Unmarshal(rr.Body.Bytes(), &s), ShouldBeNil)
				So(s.Drive.Active, ShouldBeFalse)
				So(s.Drive.State, ShouldEqual, "stopped")

				x, y, _ := api.Conductor.Sticks.Sample()
				So(x, ShouldEqual, drive.StickCentre)
				So(y, ShouldEqual, drive.StickCentre)
			})
		})

		Convey("arcade drives from fixed sticks and owns the motors", func() {
			rr := call(h, "POST", "/arcade", `{"x": 512, "y": 0, "top_speed": 300}`)
			So(rr.Code, ShouldEqual, http.StatusOK)
			So(stepper.Step(), ShouldBeNil)
			So(hal.Duty(pins.Motors[hardware.MotorA].PWM), ShouldEqual, 300)
			So(hal.Digital(pins.Motors[hardware.MotorA].IN1), ShouldEqual, hardware.High)

			var s StatePayload
			So(json.Unmarshal(rr.Body.Bytes(), &s), ShouldBeNil)
			So(s.Drive.Active, ShouldBeTrue)
			So(s.Drive.TopSpeed, ShouldEqual, 300)

			So(call(h, "POST", "/motors/A/run", `{"direction": "forward", "speed": 600}`).Code, ShouldEqual, http.StatusConflict)
			So(call(h, "POST", "/motors/A/stop", "").Code, ShouldEqual, http.StatusConflict)
			So(hal.Duty(pins.Motors[hardware.MotorA].PWM), ShouldEqual, 300)

			Convey("until the drive is stopped", func() {
				So(call(h, "POST", "/drive/stop", "").Code, ShouldEqual, http.StatusOK)
				So(hal.Duty(pins.Motors[hardware.MotorA].PWM), ShouldEqual, 0)
				So(call(h, "POST", "/motors/A/run", `{"direction": "forward", "speed": 600}`).Code, ShouldEqual, http.StatusOK)
				So(hal.Duty(pins.Motors[hardware.MotorA].PWM), ShouldEqual, 600)
			})
		})

		Convey("arcade needs both sticks", func() {
			So(call(h, "POST", "/arcade", `{"x": 512}`).Code, ShouldEqual, http.StatusBadRequest)
			So(api.Drive.Active(), ShouldBeFalse)
		})

		Convey("sticks cannot be set without a live source", func() {
			api.Conductor.Sticks = nil
			So(call(h, "PUT", "/sticks", `{"x": 512, "y": 1023}`).Code, ShouldEqual, http.StatusConflict)
		})
	})

	Convey("with authentication enabled", t, func() {
		api, hal, _ := createTestAPI()
		h := api.Routes(true)

		Convey("requests without a token are refused", func() {
			So(call(h, "GET", "/state", "").Code, ShouldEqual, http.StatusUnauthorized)
			So(call(h, "POST", "/motors/A/run", `{"direction": "forward", "speed": 600}`).Code, ShouldEqual, http.StatusUnauthorized)
			So(hal.Calls(), ShouldBeEmpty)
		})

		Convey("a token grants access and can be refreshed", func() {
			ts, err := newJWT("operator@test.case")
			So(err, ShouldBeNil)

			req := httptest.NewRequest("GET", "/state", nil)
			req.Header.Set("Authorization", "Bearer "+ts)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			So(rr.Code, ShouldEqual, http.StatusOK)

			req = httptest.NewRequest("GET", "/refresh_token", nil)
			req.Header.Set("Authorization", "Bearer "+ts)
			rr = httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			So(rr.Code, ShouldEqual, http.StatusOK)
			So(rr.Body.String(), ShouldContainSubstring, `"token":`)
		})
	})
}

func TestShellCommand(t *testing.T) {
	Convey("shell arguments become commands", t, func() {
		cmd, err := shellCommand("motor", []string{"B", "back", "300"})
		So(err, ShouldBeNil)
		So(cmd, ShouldResemble, comms.Cmd{Cmd: "motor_run", Name: "B", Direction: "back", Value: 300})

		cmd, err = shellCommand("stop", []string{"A"})
		So(err, ShouldBeNil)
		So(cmd, ShouldResemble, comms.Cmd{Cmd: "motor_stop", Name: "A"})

		cmd, err = shellCommand("servo", []string{"S0", "full"})
		So(err, ShouldBeNil)
		So(cmd, ShouldResemble, comms.Cmd{Cmd: "servo_full", Name: "S0"})

		cmd, err = shellCommand("servo", []string{"S0", "120"})
		So(err, ShouldBeNil)
		So(cmd, ShouldResemble, comms.Cmd{Cmd: "servo_angle", Name: "S0", Value: 120})

		cmd, err = shellCommand("sticks", []string{"0", "1023"})
		So(err, ShouldBeNil)
		So(cmd, ShouldResemble, comms.Cmd{Cmd: "sticks", X: 0, Y: 1023})

		cmd, err = shellCommand("arcade", []string{"512", "1023"})
		So(err, ShouldBeNil)
		So(cmd, ShouldResemble, comms.Cmd{Cmd: "arcade", X: 512, Y: 1023})

		top := 700
		cmd, err = shellCommand("arcade", []string{"512", "1023", "700"})
		So(err, ShouldBeNil)
		So(cmd, ShouldResemble, comms.Cmd{Cmd: "arcade", X: 512, Y: 1023, TopSpeed: &top})

		cmd, err = shellCommand("drive", nil)
		So(err, ShouldBeNil)
		So(cmd, ShouldResemble, comms.Cmd{Cmd: "drive"})

		cmd, err = shellCommand("drive", []string{"stop"})
		So(err, ShouldBeNil)
		So(cmd, ShouldResemble, comms.Cmd{Cmd: "drive_stop"})
	})

	Convey("malformed shell arguments are rejected", t, func() {
		_, err := shellCommand("motor", []string{"A", "forward"})
		So(err, ShouldEqual, errUsage)

		_, err = shellCommand("motor", []string{"A", "forward", "fast"})
		So(err, ShouldNotBeNil)

		_, err = shellCommand("servo", []string{"S0", "left"})
		So(err, ShouldNotBeNil)

		_, err = shellCommand("arcade", []string{"512"})
		So(err, ShouldEqual, errUsage)

		_, err = shellCommand("arcade", []string{"512", "up"})
		So(err, ShouldNotBeNil)

		_, err = shellCommand("drive", []string{"faster"})
		So(err, ShouldEqual, errUsage)

		_, err = shellCommand("dance", nil)
		So(err, ShouldEqual, comms.ErrUnknownCommand)
	})
}
