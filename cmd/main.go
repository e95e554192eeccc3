package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"github.com/szgerii/Safari-sub001/featureflag"
	safarihttp "github.com/szgerii/Safari-sub001/http"
	"github.com/szgerii/Safari-sub001/models"
	"github.com/szgerii/Safari-sub001/modules"
	"github.com/szgerii/Safari-sub001/modules/collision"
	"github.com/szgerii/Safari-sub001/modules/movement"
	"github.com/szgerii/Safari-sub001/modules/perception"
	"github.com/szgerii/Safari-sub001/simulation"
	"github.com/szgerii/Safari-sub001/smoketest"
	safariws "github.com/szgerii/Safari-sub001/websocket"
	"golang.org/x/net/websocket"
)

var (
	// The Safari version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "safari_info",
		Help:        "Safari information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"SAFARI_ADDR"                 help:"Listening address for debug clients."`
	AdminAddr          string        `cli:""        env:"SAFARI_ADMIN_ADDR"           help:"Admin listening address."`
	LogLevel           string        `cli:""        env:"SAFARI_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"SAFARI_LOG_INDENT"           help:"Indent logs."`
	LevelFile          string        `cli:""        env:"SAFARI_LEVEL_FILE"           help:"The YAML file describing the level. The built-in savanna is used when empty."`
	Seed               int64         `cli:""        env:"SAFARI_SEED"                 help:"The seed of the simulation. A time based seed is used when zero."`
	FrameDuration      time.Duration `cli:",hidden" env:"SAFARI_FRAME_DURATION"       help:"The duration of a level frame."`
	RebuildInterval    int           `cli:",hidden" env:"SAFARI_REBUILD_INTERVAL"     help:"The number of frames between two spatial index rebuilds. Zero disables rebuilds."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"SAFARI_LOG_SUMMARY_INTERVAL" help:"The duration between each frame summary log."`
	Events             eventsConfig  `cli:",hidden" env:"-"                           help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"SAFARI_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                           help:"Show version."`
	Help               bool          `cli:""        env:"-"                           help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"SAFARI_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed. Events are disabled when empty."`
	FlushInterval time.Duration `cli:",hidden" env:"SAFARI_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"SAFARI_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"SAFARI_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		LogLevel:           logs.InfoLevel.String(),
		FrameDuration:      time.Millisecond * 33,
		LogSummaryInterval: time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the Safari simulation server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "safari",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	flags := featureflag.New(conf.FeatureFlags)

	levelConf, err := loadLevelConfig(conf)
	if err != nil {
		logs.Fatal(errors.New("error loading level").Wrap(err))
	}
	flags.IfSet(featureflag.FlagIndexVehicles, func() {
		levelConf.IndexVehicles = true
	})

	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var levels models.LevelStore
	level := models.NewLevel(levels.NewID(), levelConf, conf.FrameDuration, nil)
	level.SpawnEntities(levelConf.Spawns, rand.New(rand.NewSource(seed)))
	levels.Add(level)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer levels.Remove(level)

		simulation.Run(ctx, level, simulation.Config{
			Modules: []modules.Module{
				movement.New(seed),
				perception.New(perception.DefaultSightRadius),
				collision.New(),
			},
			FeatureFlags:    flags,
			RebuildInterval: uint64(conf.RebuildInterval),
			SummaryInterval: conf.LogSummaryInterval,
		})
	}()

	readinessCheck := func() bool {
		return levels.Len() != 0
	}

	overlay := safariws.OverlayHandler{
		Levels:       &levels,
		FeatureFlags: flags,
	}

	var service http.ServeMux
	service.Handle("/health", safarihttp.HandleWithCORS(http.HandlerFunc(safarihttp.HandleHealthCheck)))
	service.Handle("/version", safarihttp.HandleWithCORS(http.HandlerFunc(safarihttp.HandleVersion(version))))
	service.Handle("/debug/quadtree", safarihttp.HandleWithCORS(safarihttp.HandleQuadtreeDebug(&levels, flags)))
	service.Handle("/debug/overlay", websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()
			overlay.HandleConn(ctx, conn)
		},
	})
	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", safarihttp.HandleHealthCheck)
	admin.HandleFunc("/ready", safarihttp.HandleReadyCheck(readinessCheck))
	admin.HandleFunc("/version", safarihttp.HandleVersion(version))
	admin.HandleFunc("/debug/quadtree", safarihttp.HandleQuadtreeDebug(&levels, flags))
	admin.HandleFunc("/smoke-test", smoketest.HandleSmokeTest(ctx, smoketest.Options{
		SendResult: func(ctx context.Context, res smoketest.Results) error {
			logs.WithTag("passed", res.Passed).
				WithTag("items", res.Items).
				WithTag("mismatches", res.Mismatches).
				WithTag("depth_reached", res.DepthReached).
				WithTag("duration", res.Duration).
				Info("smoke test finished")
			return nil
		},
	}))
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("level", levelConf.Name).
		WithTag("entities", level.EntityCount()).
		WithTag("seed", seed).
		WithTag("feature_flags", flags.List()).
		Info("starting safari server")

	safarihttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			safarihttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)

	wg.Wait()
}

func loadLevelConfig(conf config) (models.Config, error) {
	if conf.LevelFile == "" {
		return models.DefaultConfig(), nil
	}
	return models.LoadConfig(conf.LevelFile)
}

func validateConfig(conf config) error {
	if conf.FrameDuration <= 0 {
		return errors.New("frame duration must be positive").
			WithTag("frame_duration", conf.FrameDuration)
	}

	if conf.RebuildInterval < 0 {
		return errors.New("rebuild interval must not be negative").
			WithTag("rebuild_interval", conf.RebuildInterval)
	}

	if conf.LogSummaryInterval < 0 {
		return errors.New("log summary interval must not be negative").
			WithTag("log_summary_interval", conf.LogSummaryInterval)
	}

	if conf.LevelFile != "" {
		if _, err := os.Stat(conf.LevelFile); err != nil {
			return errors.New("invalid level file").
				WithTag("level_file", conf.LevelFile).
				Wrap(err)
		}
	}

	return nil
}
