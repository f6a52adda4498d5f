package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"room_controller/internal/automation"
	"room_controller/internal/broker"
	"room_controller/internal/config"
	"room_controller/internal/hal"
	"room_controller/internal/handlers"
	"room_controller/internal/logger"
	"room_controller/internal/metrics"
	"room_controller/internal/repository"
	"room_controller/internal/repository/db"
	"room_controller/internal/server"
	"room_controller/internal/service"

	"github.com/alecthomas/kong"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	simDriftTick      = 1 * time.Second
	mqttStateInterval = 1 * time.Second
	startupTimeout    = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

var version = "dev"

var CLI struct {
	Config   string           `short:"c" help:"Configuration file path" default:"configs/config.yml" type:"path"`
	EnvFile  string           `name:"env-file" help:"Dotenv file exported before the configuration is read" default:".env"`
	LogLevel string           `name:"log-level" help:"Override log_level (debug, info, warn, error)"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`
}

// @title                       Room Controller API
// @version                     1.0
// @description                 Remote control surface of the single-room automation controller.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	kong.Parse(&CLI,
		kong.Name("room-controller"),
		kong.Description("Single-room automation controller: occupancy lighting, ventilation and RFID door access."),
		kong.Vars{"version": version},
	)

	// bootstrap logger until the configured level is known
	boot := logger.New(logger.InfoLevel)

	if err := config.LoadDotEnv(CLI.EnvFile); err != nil {
		boot.Fatalw("error reading env file", "err", err)
	}
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		boot.Fatalw("error reading config", "err", err)
	}
	level := cfg.LogLevel
	if CLI.LogLevel != "" {
		if !logger.Valid(CLI.LogLevel) {
			boot.Fatalw("invalid --log-level", "level", CLI.LogLevel)
		}
		level = CLI.LogLevel
	}
	log := logger.Get(level)
	defer func() { _ = log.Sync() }()

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer closeDB(sqlDB, log)

	repos := repository.NewRepository(sqlDB)
	authSettings := service.AuthSettings{SigningKey: cfg.Auth.SigningKey, TokenTTL: cfg.Auth.TokenTTL}
	prepareStorage(repos, authSettings, cfg.Auth, log)

	hw, err := hal.Open(cfg.Hardware)
	if err != nil {
		log.Fatalw("failed to open hardware", "driver", cfg.Hardware.Driver, "err", err)
	}
	defer func() {
		if cerr := hw.Close(); cerr != nil {
			log.Errorw("failed to release hardware", "err", cerr)
		}
	}()

	rec := metrics.NewRecorder(nil)
	journal := service.NewJournal(repos.EventRepo, cfg.Journal.Buffer, log.Named("journal"), rec)

	creds, err := cfg.CredentialList()
	if err != nil {
		log.Fatalw("invalid credentials", "err", err)
	}
	ctrl := service.NewControllerService(
		service.ControllerConfig{
			Settings:        cfg.Settings(),
			ClimateInterval: cfg.Controller.ClimateInterval,
			RequestTimeout:  cfg.Controller.RequestTimeout,
		},
		hw,
		automation.NewStaticCredentials(creds),
		repos.StateRepo,
		journal,
		log.Named("controller"),
		rec,
	)
	addr := server.NormalizeAddr(cfg.Port)
	ctrl.Boot(time.Now(), addr)

	var sim service.Simulation
	if hw.Sim != nil {
		sim = service.NewSimulationService(hw.Sim)
	}
	services := service.NewService(repos, service.Deps{
		Controller: ctrl,
		Simulation: sim,
		Auth:       authSettings,
		Settings:   cfg.Settings(),
	})

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	goRun := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	workers{
		cfg:     cfg,
		ctrl:    ctrl,
		states:  services.Monitoring,
		journal: journal,
		sim:     hw.Sim,
		rec:     rec,
		log:     log.Named("mqtt"),
		connect: broker.Connect,
	}.start(ctx, goRun)

	retention, err := service.NewRetentionService(repos.EventRepo, cfg.Journal.Retention, cfg.Journal.PruneEvery, log.Named("retention"))
	if err != nil {
		log.Fatalw("failed to create retention scheduler", "err", err)
	}
	if err := retention.Start(); err != nil {
		log.Fatalw("failed to start retention", "err", err)
	}

	apiHandler := handlers.NewHandler(services, rec, log)

	srv := &server.Server{}
	runHTTPServer(srv, addr, apiHandler, log)
	log.Infow("room controller started", "addr", addr, "driver", cfg.Hardware.Driver,
		"mqtt", cfg.MQTT.Enabled, "version", version)

	waitForShutdown(cancel, srv, log)

	if err := retention.Stop(); err != nil {
		log.Errorw("retention scheduler shutdown", "err", err)
	}
	wg.Wait()
	log.Infow("room controller stopped")
}

// prepareStorage clears the session journal and creates the bootstrap admin.
func prepareStorage(repos *repository.Repository, settings service.AuthSettings, auth config.AuthConfig, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if err := service.NewEventLogService(repos.EventRepo).Reset(ctx); err != nil {
		log.Fatalw("failed to reset the event journal", "err", err)
	}
	created, err := service.NewAuthService(repos.Auth, settings).EnsureAdmin(auth.AdminUsername, auth.AdminPassword)
	if err != nil {
		log.Fatalw("failed to create the bootstrap admin", "username", auth.AdminUsername, "err", err)
	}
	if created {
		log.Infow("bootstrap admin created", "username", auth.AdminUsername)
	}
}

// connectFunc dials the MQTT broker and installs subs.
type connectFunc func(ctx context.Context, cfg config.MQTTConfig, log *logger.Logger, subs ...broker.Subscription) (mqtt.Client, error)

// workers are the background goroutines of the controller.
type workers struct {
	cfg     *config.Config
	ctrl    *service.ControllerService
	states  service.Monitoring
	journal *service.Journal
	sim     *hal.Sim
	rec     *metrics.Recorder
	log     *logger.Logger
	connect connectFunc
}

// start launches the journal writer and the control loop first. The MQTT
// bridge connects in a goroutine of its own and never holds them up.
func (w workers) start(ctx context.Context, goRun func(func())) {
	goRun(func() { w.journal.Run(ctx) })
	goRun(func() { w.ctrl.Run(ctx, w.cfg.Controller.Tick) })
	if w.sim != nil {
		goRun(func() { w.sim.Run(ctx, simDriftTick) })
	}
	if w.cfg.MQTT.Enabled {
		goRun(func() { w.startMQTT(ctx, goRun) })
	}
}

// startMQTT connects the broker bridge. The room keeps running without it
// when the broker cannot be reached.
func (w workers) startMQTT(ctx context.Context, goRun func(func())) {
	cfg := w.cfg.MQTT
	topics := broker.NewTopics(cfg.TopicPrefix)
	sub := broker.NewCommandSubscriber(topics, cfg.QoS, w.ctrl, w.log)

	client, err := w.connect(ctx, cfg, w.log, sub.Subscription())
	if err != nil {
		w.log.Errorw("mqtt bridge disabled", "broker", cfg.Broker, "err", err)
		return
	}
	pub := broker.NewPublisher(client, cfg, w.log, w.rec)
	w.journal.AddSink(pub)

	goRun(func() { sub.Run(ctx, pub) })
	goRun(func() { pub.RunState(ctx, w.states, mqttStateInterval) })
}

func closeDB(sqlDB *sql.DB, log *logger.Logger) {
	if err := sqlDB.Close(); err != nil {
		log.Errorw("failed to close sqlite", "err", err)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, addr string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(addr, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
