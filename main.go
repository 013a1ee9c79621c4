// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"dmx-gateway/internal/clock"
	"dmx-gateway/internal/configsnapshot"
	"dmx-gateway/internal/enginepool"
	"dmx-gateway/internal/eventbus"
	"dmx-gateway/internal/ledpanel"
	"dmx-gateway/internal/metrics"
	"dmx-gateway/internal/modbus"
	"dmx-gateway/internal/model"
	"dmx-gateway/internal/netsync"
	"dmx-gateway/internal/patch"
	"dmx-gateway/internal/sacn"
	"dmx-gateway/internal/scheduler"
	"dmx-gateway/internal/sensorcache"
	"dmx-gateway/internal/supervisor"
	"dmx-gateway/internal/telemetry"
	"dmx-gateway/internal/udpserver"
)

// fixtureTickInterval is the fixture-patch render cadence (25ms), distinct
// from sACN's own fixed 24ms transmit cadence.
const fixtureTickInterval = 25 * time.Millisecond

// engineSeed fixes the DirRandom permutation shared by every engine the
// pool creates, for reproducible shows across restarts.
const engineSeed = 20260731

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to configuration file")
		logLevel   = flag.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
		sacnDest   = flag.String("sacn-dest", "239.255.0.1:5568", "sACN multicast/unicast destination")
		httpAddr   = flag.String("http", ":8080", "HTTP address for /metrics and /ws telemetry")
		modbusAddr = flag.String("modbus", ":502", "Modbus TCP telemetry address")
		ledAddress = flag.String("led-panel", "/dev/ttyUSB0", "Front-panel LED serial device")
		mqttBroker = flag.String("mqtt-broker", "", "MQTT broker URL (disabled if empty)")
		dryRun     = flag.Bool("dry-run", false, "Validate config and exit")
	)
	flag.Parse()

	level := parseLogLevel(*logLevel)
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	logger.Info("DMX gateway starting", "version", "2.0.0")

	store, err := configsnapshot.NewStore(*configPath, logger)
	if err != nil {
		logger.Error("failed to load configuration", "error", err, "path", *configPath)
		os.Exit(1)
	}
	snap := store.Get()
	logger.Info("configuration loaded", "zones", len(snap.Zones()), "timezone", snap.DeviceTimezone())

	if *dryRun {
		logger.Info("dry run mode - configuration is valid")
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	bus := eventbus.New(logger)
	cache := sensorcache.New()
	wallClock := clock.New(store.Get().DeviceTimezone(), logger)

	// Inbound sensor ingest.
	udp := udpserver.New(cache, bus, logger)
	if err := udp.Start(); err != nil {
		logger.Error("failed to start sensor UDP listener", "error", err)
		os.Exit(1)
	}

	// Layered scheduler: weekly/custom/sensor/web composited into the
	// final per-zone show assignment.
	sched := scheduler.New(
		func() scheduler.Configuration { return store.Get() },
		cache,
		wallClock.Now,
		bus,
		logger,
	)
	sched.Start()

	// sACN output, fixed 24ms transmit cadence regardless of fixture load.
	// It reports its own moduleStatus so the Supervisor's sACN-errored
	// rule (§4.8 rule 1) is reachable.
	sacnSvc := sacn.New(*sacnDest, bus, logger)
	if err := sacnSvc.Start(); err != nil {
		logger.Error("failed to start sACN service", "error", err)
		os.Exit(1)
	}

	pool := enginepool.New(logger, engineSeed)
	fixturePatch := patch.New(
		configAdapter{store},
		pool,
		sacnSvc,
		bus,
		logger,
	)

	// Front-panel LED and supervisor.
	ledWriter := ledpanel.New(ledpanel.DefaultConfig(*ledAddress), logger)
	superv := supervisor.New(bus, sacnSvc, ledWriter, logger)
	superv.Start()

	// Network-sync stub: the periodic task that exercises the
	// Supervisor's network online/offline rules (§4.8 rules 4,5). The
	// real cloud-sync payload is out of scope per spec.md §1.
	netSync := netsync.New(bus, logger)
	netSync.Start()

	// Outbound-only telemetry: MQTT forwards moduleStatus/senseData, the
	// WebSocket feed additionally streams systemStatusUpdate.
	var mqttBridge *telemetry.MQTTBridge
	if *mqttBroker != "" {
		mqttBridge = telemetry.NewMQTTBridge(telemetry.MQTTConfig{Broker: *mqttBroker}, bus, logger)
		if err := mqttBridge.Start(); err != nil {
			logger.Error("failed to start MQTT telemetry bridge", "error", err)
		}
	}
	wsFeed := telemetry.NewWebSocketFeed(bus, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/ws", wsFeed)
	httpSrv := &http.Server{Addr: *httpAddr, Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("telemetry HTTP server error", "error", err)
		}
	}()

	modbusSrv := modbus.NewServer(&modbus.Config{Port: *modbusAddr, Universe: 1}, sacnSvc, superv, logger)
	if err := modbusSrv.Start(); err != nil {
		logger.Error("failed to start Modbus telemetry server", "error", err)
	}

	// The fixture tick: render the Scheduler's latest result through the
	// engine pool into DMX slots, reconciling engine membership first.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		ticker := time.NewTicker(fixtureTickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				final := sched.Result()
				pool.Reconcile(final.NonZeroIDs(), store.Get().Show)
				pool.Run()
				fixturePatch.Run(final)
				metrics.EnginePoolSize.Set(float64(pool.Size()))
				schedDegraded := 0.0
				if sched.Degraded() {
					schedDegraded = 1
				}
				metrics.SchedulerDegraded.Set(schedDegraded)
			}
		}
	})

	logger.Info("DMX gateway ready", "http", *httpAddr, "modbus", *modbusAddr, "sacn_dest", *sacnDest)

	<-ctx.Done()

	logger.Info("initiating graceful shutdown...")
	if err := group.Wait(); err != nil {
		logger.Error("fixture tick loop exited with error", "error", err)
	}

	sched.Stop()
	superv.Stop()
	netSync.Stop()
	sacnSvc.Stop()
	if mqttBridge != nil {
		mqttBridge.Stop()
	}
	modbusSrv.Stop()
	ledWriter.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry HTTP server shutdown error", "error", err)
	}

	logger.Info("DMX gateway stopped")
}

// configAdapter narrows *configsnapshot.Store to patch.Configuration,
// always reading the current snapshot so a reload takes effect on the
// very next fixture tick.
type configAdapter struct {
	store *configsnapshot.Store
}

func (a configAdapter) Zones() []model.Zone              { return a.store.Get().Zones() }
func (a configAdapter) Fixtures() []model.Fixture         { return a.store.Get().Fixtures() }
func (a configAdapter) FixtureTypes() []model.FixtureType { return a.store.Get().FixtureTypes() }
func (a configAdapter) AssignedToLocation() bool          { return a.store.Get().AssignedToLocation() }

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
