package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/CodedInternet/motordriver/comms"
	"github.com/CodedInternet/motordriver/onboard/hardware"
	"github.com/abiosoft/ishell"
)

var errUsage = errors.New("wrong number of arguments")

// shellCommand turns the arguments of a shell command into the command the
// conductor understands.
func shellCommand(name string, args []string) (cmd comms.Cmd, err error) {
	switch name {
	case "motor":
		if len(args) != 3 {
			return cmd, errUsage
		}
		speed, err := strconv.Atoi(args[2])
		if err != nil {
			return cmd, err
		}
		return comms.Cmd{Cmd: "motor_run", Name: args[0], Direction: args[1], Value: speed}, nil

	case "stop":
		if len(args) != 1 {
			return cmd, errUsage
		}
		return comms.Cmd{Cmd: "motor_stop", Name: args[0]}, nil

	case "arcade":
		if len(args) != 2 && len(args) != 3 {
			return cmd, errUsage
		}
		values, err := atois(args)
		if err != nil {
			return cmd, err
		}
		cmd = comms.Cmd{Cmd: "arcade", X: values[0], Y: values[1]}
		if len(values) == 3 {
			cmd.TopSpeed = &values[2]
		}
		return cmd, nil

	case "drive":
		switch {
		case len(args) == 0:
			return comms.Cmd{Cmd: "drive"}, nil
		case len(args) == 1 && args[0] == "stop":
			return comms.Cmd{Cmd: "drive_stop"}, nil
		}
		return cmd, errUsage

	case "servo":
		if len(args) != 2 {
			return cmd, errUsage
		}
		switch args[1] {
		case "zero", "full", "stop":
			return comms.Cmd{Cmd: "servo_" + args[1], Name: args[0]}, nil
		}
		angle, err := strconv.Atoi(args[1])
		if err != nil {
			return cmd, fmt.Errorf("expected zero, full, stop or an angle: %v", err)
		}
		return comms.Cmd{Cmd: "servo_angle", Name: args[0], Value: angle}, nil

	case "sticks":
		if len(args) != 2 {
			return cmd, errUsage
		}
		values, err := atois(args)
		if err != nil {
			return cmd, err
		}
		return comms.Cmd{Cmd: "sticks", X: values[0], Y: values[1]}, nil
	}

	return cmd, comms.ErrUnknownCommand
}

func atois(args []string) ([]int, error) {
	values := make([]int, len(args))
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func newShell(api *API) *ishell.Shell {
	motorNames := func([]string) []string {
		var names []string
		for _, m := range hardware.Motors() {
			names = append(names, m.String())
		}
		return names
	}
	servoNames := func([]string) []string {
		var names []string
		for _, s := range hardware.Servos() {
			names = append(names, s.String())
		}
		return names
	}

	run := func(c *ishell.Context) {
		cmd, err := shellCommand(c.Cmd.Name, c.Args)
		if err != nil {
			c.Err(err)
			c.Println("usage:", c.Cmd.Help)
			return
		}
		if err := api.Conductor.ProcessCommand(cmd); err != nil {
			c.Err(err)
		}
	}

	shell := ishell.New()
	shell.Println("Motor driver development shell")
	shell.ShowPrompt(true)

	shell.AddCmd(&ishell.Cmd{
		Name: "createsuperuser",
		Help: "createsuperuser <email> <password>",
		Func: func(c *ishell.Context) {
			// disable the '>>>' for cleaner same line input.
			c.ShowPrompt(false)
			defer c.ShowPrompt(true)

			var email string
			if len(c.Args) >= 1 {
				email = c.Args[0]
			} else {
				c.Print("Email: ")
				email = c.ReadLine()
			}

			var password string
			if len(c.Args) >= 2 {
				password = c.Args[1]
			} else {
				c.Print("Password: ")
				password = c.ReadPassword()
			}

			if err := createSuperuser(ENV.DB, email, password); err != nil {
				c.Err(err)
				return
			}
			c.Println("Superuser created")
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "motor",
		Completer: motorNames,
		Help:      "motor <A|B> <forward|backward> <speed>",
		Func:      run,
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "stop",
		Completer: motorNames,
		Help:      "stop [A|B], no argument stops everything",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				if err := api.Conductor.StopAll(); err != nil {
					c.Err(err)
				}
				return
			}
			run(c)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "servo",
		Completer: servoNames,
		Help:      "servo <S0|S1|S2> <zero|full|stop|angle>",
		Func:      run,
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "sticks",
		Help: "sticks <x> <y>, both 0-1023 with 512 at rest",
		Func: run,
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "arcade",
		Help: "arcade <x> <y> [top speed], drives from fixed sticks until stopped",
		Func: run,
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "drive",
		Help: "drive [stop], starts or stops the drive loop on the configured sticks",
		Func: run,
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "state",
		Help: "Reads the current state of the board",
		Func: func(c *ishell.Context) {
			s := api.state()
			c.Printf("drive %s (active %v), top speed %d, sticks (%d, %d), power L %d R %d\n",
				s.Drive.State, s.Drive.Active, s.Drive.TopSpeed, s.Drive.XStick, s.Drive.YStick, s.Drive.Left, s.Drive.Right)
			for _, m := range s.Motors {
				c.Printf("motor %s: running %v, %s at %d\n", m.Name, m.Running, m.Direction, m.Speed)
			}
			for _, sv := range s.Servos {
				c.Printf("servo %s: %dµs\n", sv.Name, sv.Pulse)
			}
			if s.Session != "" {
				c.Println("controlled by session", s.Session)
			}
		},
	})

	return shell
}
