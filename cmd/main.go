package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/digiexchris/HeatTreatFurnace/internal/config"
	"github.com/digiexchris/HeatTreatFurnace/internal/fsm"
	"github.com/digiexchris/HeatTreatFurnace/internal/handlers"
	"github.com/digiexchris/HeatTreatFurnace/internal/heater"
	"github.com/digiexchris/HeatTreatFurnace/internal/logger"
	"github.com/digiexchris/HeatTreatFurnace/internal/repository"
	"github.com/digiexchris/HeatTreatFurnace/internal/repository/db"
	"github.com/digiexchris/HeatTreatFurnace/internal/server"
	"github.com/digiexchris/HeatTreatFurnace/internal/service"
	"github.com/digiexchris/HeatTreatFurnace/internal/telemetry"
)

func main() {
	fs := config.Flags()
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error reading config:", err)
		os.Exit(1)
	}

	log := logger.Get(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatalw("furnace controller stopped", "err", err)
	}
	log.Infow("furnace controller stopped")
}

// plant bundles the heater the state machine drives with what the control
// loop needs from it.
type plant struct {
	heater  fsm.Heater
	measure fsm.TempSource
	sim     service.Plant
	close   func() error
}

func openPlant(cfg config.Config, log *logger.Logger) (plant, error) {
	if cfg.Heater.Driver == config.HeaterGPIO {
		relay, err := heater.NewRelay(cfg.Heater.Chip, cfg.Heater.Line, cfg.Heater.ActiveLow)
		if err != nil {
			return plant{}, fmt.Errorf("open heater relay: %w", err)
		}
		// TODO: wire a thermocouple reader; until then the relay runs open loop at ambient.
		log.Warnw("gpio heater has no temperature input", "chip", cfg.Heater.Chip, "line", cfg.Heater.Line)
		ambient := cfg.Control.AmbientC
		return plant{
			heater:  relay,
			measure: func() float64 { return ambient },
			close:   relay.Close,
		}, nil
	}

	sim := heater.NewSimulated(heater.SimConfig{
		AmbientC:        cfg.Control.AmbientC,
		RampUpCPerSec:   cfg.Heater.RampUpCPerSec,
		CoolDownCPerSec: cfg.Heater.CoolDownCPerSec,
		ToleranceC:      heater.ToleranceC,
	})
	return plant{
		heater:  sim,
		measure: sim.Temperature,
		sim:     sim,
		close:   func() error { return nil },
	}, nil
}

func openPublisher(cfg config.Config, log *logger.Logger) telemetry.Publisher {
	if !cfg.MQTT.Enabled {
		return telemetry.Nop{}
	}
	pub, err := telemetry.NewRealPublisher(telemetry.Config{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		QoS:         cfg.MQTT.QoS,
	})
	if err != nil {
		// Telemetry is optional; the controller runs without it.
		log.Errorw("mqtt unavailable, telemetry disabled", "broker", cfg.MQTT.Broker, "err", err)
		return telemetry.Nop{}
	}
	return pub
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()
	repos := repository.NewRepository(conn)

	if interrupted, err := service.DetectInterrupted(ctx, repos.StateRepo, repos.EventRepo); err != nil {
		log.Errorw("interrupted run check failed", "err", err)
	} else if interrupted {
		log.Warnw("previous run was interrupted; furnace starts in Idle")
	}

	pl, err := openPlant(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := pl.close(); cerr != nil {
			log.Errorw("failed to release heater", "err", cerr)
		}
	}()

	rec := service.NewRecorder(repos.StateRepo, repos.EventRepo, openPublisher(cfg, log), log, cfg.Control.RecorderBuffer)
	machine := fsm.New(log, pl.heater,
		fsm.WithTempSource(pl.measure),
		fsm.WithTick(cfg.Control.Tick),
		fsm.WithTransitionListener(rec.Transition),
	)
	ctrl := service.NewController(machine, repos.ProgramRepo, log, service.ControllerConfig{
		MaxSafeC: cfg.Control.MaxSafeC,
		Measure:  pl.measure,
		Plant:    pl.sim,
		Observer: rec,
	})

	services := service.NewService(repos, ctrl, cfg.Auth.SigningKey, cfg.Auth.TokenTTL)
	if dir := cfg.Programs.Dir; dir != "" {
		n, err := services.Programs.Import(ctx, dir)
		if err != nil {
			log.Errorw("program import failed", "dir", dir, "err", err)
		} else {
			log.Infow("programs imported", "dir", dir, "count", n)
		}
	}

	srv := server.New(cfg.Server.Port, handlers.NewHandler(services, log).InitRoutes())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rec.Run(gctx) })
	g.Go(func() error { return services.ControlLoop.Run(gctx, cfg.Control.Tick) })
	g.Go(func() error {
		log.Infow("http server listening", "addr", srv.Addr())
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
