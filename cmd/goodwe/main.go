package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	adactor "github.com/berfenger/goodwe2prom/internal/adapter/actor"
	"github.com/berfenger/goodwe2prom/internal/config"
	"github.com/berfenger/goodwe2prom/internal/core/domain"
	"github.com/berfenger/goodwe2prom/internal/core/service"
	"github.com/berfenger/goodwe2prom/internal/instrument"
	"github.com/berfenger/goodwe2prom/internal/server"
	"github.com/berfenger/goodwe2prom/internal/util/actorutil"
	"github.com/berfenger/goodwe2prom/pkg/aa55"
	"github.com/berfenger/goodwe2prom/pkg/goodwe"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const usage = `usage: goodwe [flags] <command> [target]

commands:
  discover   broadcast a discovery request and list the inverters that answer
  identify   print model, serial number and firmware of the target
  metrics    read every configured metric set once and print it
  serve      run the Prometheus exporter
  mqtt       run the MQTT bridge
  version    print the version

flags:
`

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	flags := pflag.NewFlagSet("goodwe", pflag.ExitOnError)
	registerFlags(flags)
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) == 0 || len(args) > 2 {
		flags.Usage()
		os.Exit(2)
	}
	command := args[0]
	target := ""
	if len(args) == 2 {
		target = args[1]
	}

	if command == "version" {
		fmt.Println(versioninfo.Short())
		return
	}

	// load and print config
	cfg, err := initConfig(flags, target)
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	switch command {
	case "discover":
		err = runDiscover()
	case "identify":
		err = runIdentify(cfg, logger)
	case "metrics":
		err = runMetrics(cfg, logger)
	case "serve":
		err = runServe(cfg, logger)
	case "mqtt":
		err = runMQTT(cfg, logger)
	default:
		flags.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error(command+" failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func createReader(cfg *config.Config, logger *zap.Logger, metrics *instrument.Metrics) (goodwe.Reader, error) {
	if err := cfg.RequireInverterHost(); err != nil {
		return nil, err
	}

	var inst *goodwe.Instrument
	if metrics != nil {
		inst = metrics.Instrument()
	}

	switch cfg.Inverter.Transport {
	case config.TRANSPORT_MODBUS_TCP:
		return goodwe.CreateModbusTCPReader(cfg.Inverter.Host, cfg.Inverter.ModbusPort, cfg.Inverter.UnitId,
			cfg.Inverter.Timeout(), logger, inst)
	default:
		span, err := aa55.ParseChecksumSpan(cfg.Inverter.ChecksumSpan)
		if err != nil {
			return nil, err
		}
		return goodwe.CreateUDPReader(goodwe.UDPReaderConfig{
			Host:    cfg.Inverter.Host,
			Port:    cfg.Inverter.Port,
			Address: cfg.Inverter.Address,
			Timeout: cfg.Inverter.Timeout(),
			Span:    span,
		}, logger, inst)
	}
}

// scrapeTimeout bounds one full scrape: every configured set may use the
// transport timeout once.
func scrapeTimeout(cfg *config.Config) time.Duration {
	return time.Duration(len(cfg.Inverter.Sets))*cfg.Inverter.Timeout() + time.Second
}

func runDiscover() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	found, err := goodwe.Discover(ctx, goodwe.DISCOVERY_TIMEOUT)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Println("no inverter answered")
		return nil
	}
	for _, inv := range found {
		fmt.Printf("%s\t%s\t%s\n", inv.IP, inv.SerialNumber, inv.WifiName)
	}
	return nil
}

func runIdentify(cfg *config.Config, logger *zap.Logger) error {
	reader, err := createReader(cfg, logger, nil)
	if err != nil {
		return err
	}
	identifier, ok := reader.(goodwe.Identifier)
	if !ok {
		return domain.ErrIdentifyUnsupported
	}
	if err := reader.Open(); err != nil {
		return err
	}
	defer reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Inverter.Timeout()+time.Second)
	defer cancel()
	info, err := identifier.Identify(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("serial_number: %s\nfirmware: %s\n", info.SerialNumber, info.Firmware)
	return nil
}

func runMetrics(cfg *config.Config, logger *zap.Logger) error {
	reader, err := createReader(cfg, logger, nil)
	if err != nil {
		return err
	}
	if err := reader.Open(); err != nil {
		return err
	}
	defer reader.Close()

	failed := 0
	for _, name := range cfg.Inverter.Sets {
		set, _ := goodwe.NewSet(name)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Inverter.Timeout()+time.Second)
		result := domain.SetResult{Set: set, Error: reader.Read(ctx, set)}
		cancel()

		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, result.Error)
		}
		if result.Renderable() {
			fmt.Print(set.String())
		}
	}
	if failed == len(cfg.Inverter.Sets) {
		return errors.New("no metric set could be read")
	}
	return nil
}

func spawnInverter(as *pactor.ActorSystem, cfg *config.Config, metrics *instrument.Metrics,
	logger *zap.Logger) (*adactor.InverterClient, *pactor.PID, error) {
	reader, err := createReader(cfg, logger, metrics)
	if err != nil {
		return nil, nil, err
	}
	timeout := scrapeTimeout(cfg)
	props := pactor.PropsFromProducer(func() pactor.Actor {
		return adactor.NewInverterActor(reader, cfg.Inverter.Sets, timeout, metrics, logger)
	})
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_INVERTER)
	if err != nil {
		return nil, nil, err
	}
	return adactor.NewInverterClient(as.Root, pid, timeout+2*time.Second), pid, nil
}

func runServe(cfg *config.Config, logger *zap.Logger) error {
	metrics := instrument.NewMetrics()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	client, pid, err := spawnInverter(as, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer as.Root.Stop(pid)

	server := server.NewServer(*cfg, client, metrics, logger)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	logger.Info("exporter listening", zap.String("addr", server.Addr))
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")
	return nil
}

func runMQTT(cfg *config.Config, logger *zap.Logger) error {
	if cfg.MQTT.Host == "" {
		return errors.New("mqtt host required: set mqtt.host or GOODWE_MQTT_HOST")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := instrument.NewMetrics()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	client, inverterPid, err := spawnInverter(as, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer as.Root.Stop(inverterPid)

	// the broker may connect before the bridge exists
	var bridge atomic.Pointer[service.MQTTBridge]
	onConnected := func() {
		if b := bridge.Load(); b != nil {
			b.ResetDiscovery()
		}
	}
	mqttProps := pactor.PropsFromProducer(func() pactor.Actor {
		return adactor.NewMQTTActor(cfg, onConnected, logger)
	})
	mqttPid, err := as.Root.SpawnNamed(mqttProps, adactor.ACTOR_ID_MQTT)
	if err != nil {
		return err
	}
	defer as.Root.Stop(mqttPid)

	bridge.Store(service.NewMQTTBridge(client, adactor.NewMQTTPublisher(as.Root, mqttPid),
		cfg.Inverter.Host, cfg.MQTT.BaseTopic, cfg.MQTT.HADiscoveryEnable, logger))

	sched, err := service.ScheduleBridge(ctx, bridge.Load(), cfg.MonitorConfig.PollInterval(), logger)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Println("shutting down gracefully")
	sched.Stop()
	sched.Wait(context.Background())
	return nil
}
