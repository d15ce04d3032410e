package main

import (
	"errors"
	"net/http"

	"github.com/CodedInternet/motordriver/comms"
	"github.com/CodedInternet/motordriver/onboard/drive"
	deviceErrors "github.com/CodedInternet/motordriver/onboard/errors"
	"github.com/CodedInternet/motordriver/onboard/hardware"
	"github.com/go-chi/chi"
	"github.com/go-chi/render"
)

// API exposes the board over REST. Every write goes through the conductor so
// it follows the same rules as the websocket and broker surfaces.
type API struct {
	Driver    *hardware.Driver
	Conductor *comms.Conductor
	Drive     *drive.Supervisor
	Control   *comms.ControlHandler // optional, reports the controlling session
}

//---
// Payloads
//---

type MotorRunPayload struct {
	Direction string `json:"direction"`
	Speed     int    `json:"speed"`
}

func (p *MotorRunPayload) Bind(r *http.Request) error {
	if p.Direction == "" {
		return errors.New("direction is required")
	}
	return nil
}

type AnglePayload struct {
	Angle *int `json:"angle"`
}

func (p *AnglePayload) Bind(r *http.Request) error {
	if p.Angle == nil {
		return errors.New("angle is required")
	}
	return nil
}

type SticksPayload struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

func (p *SticksPayload) Bind(r *http.Request) error {
	if p.X == nil || p.Y == nil {
		return errors.New("x and y are required")
	}
	return nil
}

type ArcadePayload struct {
	X        *int `json:"x"`
	Y        *int `json:"y"`
	TopSpeed *int `json:"top_speed"`
}

func (p *ArcadePayload) Bind(r *http.Request) error {
	if p.X == nil || p.Y == nil {
		return errors.New("x and y are required")
	}
	return nil
}

type MotorPayload struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Speed     int    `json:"speed"`
	Running   bool   `json:"running"`
}

type ServoPayload struct {
	Name  string `json:"name"`
	Pulse int    `json:"pulse"`
}

type DrivePayload struct {
	Active   bool   `json:"active"`
	State    string `json:"state"`
	TopSpeed int    `json:"top_speed"`
	XStick   int    `json:"x_stick"`
	YStick   int    `json:"y_stick"`
	Left     int    `json:"left"`
	Right    int    `json:"right"`
}

type StatePayload struct {
	Drive   DrivePayload   `json:"drive"`
	Motors  []MotorPayload `json:"motors"`
	Servos  []ServoPayload `json:"servos"`
	Session string         `json:"session,omitempty"`
}

//---
// Routes
//---

// Routes builds the /api router. When protect is false the control routes are
// open, which is only meant for development.
func (a *API) Routes(protect bool) chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/login", Login)

	r.Group(func(r chi.Router) {
		if protect {
			// Seek, verify and validate JWT tokens
			r.Use(ValidateJWT)
			r.Get("/refresh_token", JWTRefresh)
		}

		r.Get("/state", a.getState)
		r.Post("/stop", a.stopAll)

		r.Route("/motors/{motor}", func(r chi.Router) {
			r.Post("/run", a.motorRun)
			r.Post("/stop", a.motorStop)
		})

		r.Route("/servos/{servo}", func(r chi.Router) {
			r.Post("/zero", a.servoCmd("servo_zero"))
			r.Post("/full", a.servoCmd("servo_full"))
			r.Post("/stop", a.servoCmd("servo_stop"))
			r.Post("/angle", a.servoAngle)
		})

		r.Put("/sticks", a.putSticks)

		r.Post("/arcade", a.arcade)
		r.Post("/drive", a.process(comms.Cmd{Cmd: "drive"}))
		r.Post("/drive/stop", a.process(comms.Cmd{Cmd: "drive_stop"}))
	})

	return r
}

func (a *API) state() StatePayload {
	s := StatePayload{
		Drive: DrivePayload{State: drive.Idle.String()},
	}
	if a.Drive != nil {
		s.Drive.Active = a.Drive.Active()
		s.Drive.TopSpeed = a.Drive.TopSpeed
		if arcade := a.Drive.Arcade(); arcade != nil {
			last := arcade.Last()
			s.Drive.State = arcade.State().String()
			s.Drive.TopSpeed = arcade.TopSpeed()
			s.Drive.XStick, s.Drive.YStick = last.XStick, last.YStick
			s.Drive.Left, s.Drive.Right = last.Left, last.Right
		}
	}

	for _, m := range hardware.Motors() {
		ms, _ := a.Driver.MotorState(m)
		s.Motors = append(s.Motors, MotorPayload{
			Name:      m.String(),
			Direction: ms.Direction.String(),
			Speed:     ms.Speed,
			Running:   ms.Running,
		})
	}
	for _, sv := range hardware.Servos() {
		pulse, _ := a.Driver.ServoPulse(sv)
		s.Servos = append(s.Servos, ServoPayload{Name: sv.String(), Pulse: pulse})
	}
	if a.Control != nil {
		s.Session = a.Control.Session()
	}
	return s
}

// run runs cmd and answers with the resulting board state.
func (a *API) run(w http.ResponseWriter, r *http.Request, cmd comms.Cmd) {
	if err := a.Conductor.ProcessCommand(cmd); err != nil {
		render.Render(w, r, commandError(err))
		return
	}
	render.JSON(w, r, a.state())
}

func commandError(err error) render.Renderer {
	switch err.(type) {
	case deviceErrors.ParseError:
		return ErrNotFound
	}
	switch err {
	case comms.ErrNoLiveSticks, comms.ErrNoDrive, drive.ErrDriveActive:
		return ErrConflict(err)
	case comms.ErrUnknownCommand:
		return ErrInvalidRequest(err)
	}
	return ErrDevice(err)
}

//---
// Views
//---

func (a *API) getState(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, a.state())
}

func (a *API) process(cmd comms.Cmd) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.run(w, r, cmd)
	}
}

func (a *API) stopAll(w http.ResponseWriter, r *http.Request) {
	if err := a.Conductor.StopAll(); err != nil {
		render.Render(w, r, ErrDevice(err))
		return
	}
	render.JSON(w, r, a.state())
}

func (a *API) motorRun(w http.ResponseWriter, r *http.Request) {
	data := &MotorRunPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if _, err := hardware.ParseDirection(data.Direction); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	a.run(w, r, comms.Cmd{
		Cmd:       "motor_run",
		Name:      chi.URLParam(r, "motor"),
		Direction: data.Direction,
		Value:     data.Speed,
	})
}

func (a *API) motorStop(w http.ResponseWriter, r *http.Request) {
	a.run(w, r, comms.Cmd{Cmd: "motor_stop", Name: chi.URLParam(r, "motor")})
}

func (a *API) servoCmd(cmd string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.run(w, r, comms.Cmd{Cmd: cmd, Name: chi.URLParam(r, "servo")})
	}
}

func (a *API) servoAngle(w http.ResponseWriter, r *http.Request) {
	data := &AnglePayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	a.run(w, r, comms.Cmd{Cmd: "servo_angle", Name: chi.URLParam(r, "servo"), Value: *data.Angle})
}

func (a *API) putSticks(w http.ResponseWriter, r *http.Request) {
	data := &SticksPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	a.run(w, r, comms.Cmd{Cmd: "sticks", X: *data.X, Y: *data.Y})
}
