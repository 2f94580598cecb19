package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	kitlog "github.com/go-kit/log"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	rocket "github.com/MalikTzys/Rocket-With-Aerodynamic"
	"github.com/MalikTzys/Rocket-With-Aerodynamic/metrics"
	"github.com/MalikTzys/Rocket-With-Aerodynamic/server"
)

const frameTime = time.Second / 60

var (
	configPath string
	headless   bool
	duration   time.Duration
	exportName string
)

func init() {
	flag.StringVar(&configPath, "config", "", "configuration file (TOML, YAML or JSON)")
	flag.BoolVar(&headless, "headless", false, "run without the HUD, logging to stderr")
	flag.DurationVar(&duration, "duration", 0, "stop after this much wall time in headless mode (0 runs until interrupted)")
	flag.StringVar(&exportName, "export", "", "write a CSV flight log with this name")
}

// driver owns the flight. Only one goroutine may call tick.
type driver struct {
	flight  *rocket.Flight
	queue   *rocket.CommandQueue
	store   *rocket.SnapshotStore
	sinks   metrics.Sinks
	export  chan<- rocket.Snapshot
	logger  kitlog.Logger
	lastErr time.Time
}

// tick merges the local input with the commands queued by the HTTP server and advances the flight.
func (d *driver) tick(ctx context.Context, wallDt float64, local rocket.Command) rocket.Snapshot {
	snap := d.flight.Tick(wallDt, local.Merge(d.queue.Drain()))
	d.store.Publish(snap)
	if err := d.sinks.Observe(ctx, snap); err != nil && time.Since(d.lastErr) > 10*time.Second {
		d.lastErr = time.Now()
		d.logger.Log("level", "error", "subsys", "metrics", "err", err)
	}
	if d.export != nil {
		select {
		case d.export <- snap:
		default:
			d.logger.Log("level", "warning", "subsys", "export", "message", "flight log falling behind, dropping snapshot", "t(s)", snap.Time)
		}
	}
	return snap
}

func main() {
	flag.Parse()
	conf, err := rocket.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if exportName != "" {
		conf.Export.Filename = exportName
	}

	var logger kitlog.Logger
	if headless {
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	} else {
		f, err := os.OpenFile(conf.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("opening log file: %s", err)
		}
		defer f.Close()
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(f))
	}
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)

	flight, err := rocket.NewFlight(conf, logger)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		log.Fatal(err)
	}
	d := &driver{
		flight: flight,
		queue:  rocket.NewCommandQueue(),
		store:  rocket.NewSnapshotStore(),
		sinks:  metrics.Sinks{recorder},
		logger: logger,
	}

	if conf.Influx.Enabled {
		client := influxdb2.NewClient(conf.Influx.URL, conf.Influx.Token)
		defer client.Close()
		d.sinks = append(d.sinks, metrics.NewInfluxSink(client, conf.Influx.Org, conf.Influx.Bucket, conf.Name, time.Now(), conf.Influx.Interval))
		logger.Log("level", "info", "subsys", "metrics", "influx", conf.Influx.URL, "bucket", conf.Influx.Bucket)
	}

	var wg sync.WaitGroup
	if !conf.Export.IsUseless() {
		export := make(chan rocket.Snapshot, 1000)
		d.export = export
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rocket.StreamSnapshots(conf.Export, export); err != nil {
				logger.Log("level", "error", "subsys", "export", "err", err)
			}
		}()
		defer func() {
			close(export)
			wg.Wait()
		}()
	}

	if conf.Server.Enabled {
		srv := &http.Server{
			Addr:    conf.Server.Listen,
			Handler: server.New(d.store, d.queue, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		}
		go func() {
			logger.Log("level", "info", "subsys", "http", "listen", conf.Server.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log("level", "error", "subsys", "http", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	d.store.Publish(flight.Snapshot())
	if headless {
		runHeadless(ctx, d)
	} else if _, err := tea.NewProgram(newHUD(ctx, d), tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintln(os.Stderr, err)
	}
	flight.LogStatus()
}

func runHeadless(ctx context.Context, d *driver) {
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()
	status := time.NewTicker(5 * time.Second)
	defer status.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.tick(ctx, now.Sub(last).Seconds(), rocket.Command{})
			last = now
		case <-status.C:
			d.flight.LogStatus()
		}
	}
}
