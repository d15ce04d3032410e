package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CodedInternet/motordriver/comms"
	"github.com/CodedInternet/motordriver/onboard"
	"github.com/CodedInternet/motordriver/onboard/drive"
	"github.com/CodedInternet/motordriver/onboard/hardware"
	"github.com/asdine/storm/v3"
	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

type EnvConfig struct {
	JWT_ISSUER string `env:"JWT_ISSUER" envDefault:"DEV"`
	JWT_SECRET string `env:"JWT_SECRET"`
	DEBUG      bool   `env:"DEBUG" envDefault:"false"`
	DB_FILE    string `env:"DB_FILE" envDefault:"./tmp/dev.db"`
	DB         *storm.DB
}

var (
	ENV *EnvConfig
)

func init() {
	ENV = new(EnvConfig)
	if err := env.Parse(ENV); err != nil {
		log.Fatalf("Unable to read environment: %v", err)
	}
}

func main() {
	app := cli.NewApp()
	app.Name = "motordriver"
	app.Usage = "drive a two channel motor bridge and three servos"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "board config yaml, the reference wiring is used when empty",
		},
		cli.BoolFlag{
			Name:  "sim",
			Usage: "run against a simulated board",
		},
		cli.StringFlag{
			Name:  "serial",
			Value: "/dev/ttyACM0",
			Usage: "serial port of the bridge controller",
		},
		cli.IntFlag{
			Name:  "baud",
			Value: 115200,
			Usage: "baud rate of the bridge controller",
		},
		cli.StringFlag{
			Name:  "http",
			Value: ":8080",
			Usage: "http server listening address",
		},
		cli.StringFlag{
			Name:  "amqp",
			Usage: "broker url to take commands from, disabled when empty",
		},
		cli.BoolFlag{
			Name:  "shell",
			Usage: "start the interactive development shell",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadBoardConfig(filename string) (onboard.BoardConfig, error) {
	if filename == "" {
		return onboard.DefaultBoardConfig(), nil
	}

	yamlFile, err := ioutil.ReadFile(filename)
	if err != nil {
		return onboard.BoardConfig{}, fmt.Errorf("unable to read yaml file: %v", err)
	}
	return onboard.ParseBoardConfig(yamlFile)
}

func openHAL(c *cli.Context) (hardware.HAL, func(), error) {
	if c.Bool("sim") {
		log.Println("Creating simulated board")
		return hardware.NewSimulatedHAL(), func() {}, nil
	}

	s, err := hardware.OpenSerialHAL(c.String("serial"), c.Int("baud"))
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Bridge firmware %s on %s", s.Version, c.String("serial"))
	return s, func() { s.Close() }, nil
}

func run(c *cli.Context) error {
	protect := !ENV.DEBUG
	if err := checkSecret(protect); err != nil {
		return err
	}

	config, err := loadBoardConfig(c.String("config"))
	if err != nil {
		return err
	}

	ENV.DB, err = openDb(ENV.DB_FILE)
	if err != nil {
		return err
	}
	defer ENV.DB.Close()

	hal, closeHAL, err := openHAL(c)
	if err != nil {
		return err
	}
	defer closeHAL()

	driver := hardware.NewDriver(hal, config.Bindings())
	defer driver.StopAll()

	sticks, live, err := config.Sticks(hal)
	if err != nil {
		return err
	}

	supervisor := &drive.Supervisor{
		Motors:    driver,
		Scheduler: drive.Ticker{Interval: config.Drive.Interval},
		DeadZone:  config.DeadZone(),
		Sticks:    sticks,
		TopSpeed:  config.Drive.TopSpeed,
	}
	defer supervisor.Stop()

	conductor := &comms.Conductor{Device: driver, Sticks: live, Drive: supervisor}
	control := comms.NewControlHandler(conductor)
	api := &API{
		Driver:    driver,
		Conductor: conductor,
		Drive:     supervisor,
		Control:   control,
	}

	var consumer *comms.Consumer
	if url := c.String("amqp"); url != "" {
		consumer, err = comms.DialConsumer(url, conductor)
		if err != nil {
			return err
		}
		defer consumer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if config.Drive.Enabled {
		supervisor.Engage()
	}
	g.Go(func() error {
		<-ctx.Done()
		supervisor.Stop()
		return nil
	})

	//---
	// HTTP surfaces
	//---
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	if !protect {
		fmt.Println("Running in debug mode. Authentication disabled.")
	}
	r.Mount("/api", api.Routes(protect))
	r.Route("/ws", func(r chi.Router) {
		if protect {
			r.Use(ValidateJWT)
		}
		r.Handle("/control", control)
	})

	server := &http.Server{Addr: c.String("http"), Handler: r}
	g.Go(func() error {
		fmt.Println("Listening on", server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdown)
	})

	if consumer != nil {
		g.Go(func() error {
			return consumer.Run(ctx)
		})
	}

	if c.Bool("shell") {
		newShell(api).Start()
	}

	return g.Wait()
}
