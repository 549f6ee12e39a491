package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/silicon-heaven/shvdevice-go/internal/logger"
	"github.com/silicon-heaven/shvdevice-go/pkg/config"
	"github.com/silicon-heaven/shvdevice-go/pkg/connection"
	"github.com/silicon-heaven/shvdevice-go/pkg/file"
	"github.com/silicon-heaven/shvdevice-go/pkg/metrics"
	promMetrics "github.com/silicon-heaven/shvdevice-go/pkg/metrics/prometheus"
	"github.com/silicon-heaven/shvdevice-go/pkg/transport/tcpip"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree/methods"
)

const demoFileMaxSize = 1 << 20 // 1 MiB, just large enough to exercise chunked write/read

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Connect to a broker and serve this device's node tree",
	Long: `Start loads configuration, dials the configured broker over TCP,
logs in as a device, and serves .app, .device, and a demo in-memory file
node until interrupted.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	var deviceMetrics metrics.DeviceMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		deviceMetrics = promMetrics.NewDeviceMetrics()
		go serveMetrics(cfg.Metrics.Address)
	}

	started := time.Now()
	root := buildTree(cfg, deviceMetrics, started)

	t := tcpip.New(cfg.Broker.Address)
	connCfg := connection.Config{
		User:                cfg.Login.User,
		Password:            cfg.Login.Password,
		DeviceID:            cfg.Login.DeviceID,
		MountPoint:          cfg.Login.MountPoint,
		IdleWatchDogTimeOut: cfg.Login.IdleWatchDogTimeOut,
		PingPeriod:          cfg.Broker.PingPeriod,
		ReconnectPeriod:     cfg.Broker.ReconnectPeriod,
		ReconnectRetries:    cfg.Broker.ReconnectRetries,
	}

	attention := func(ev connection.Event, cerr *connection.Error) {
		switch ev {
		case connection.EventConnected:
			logger.Info("connected to broker", logger.BrokerAddr(cfg.Broker.Address))
		case connection.EventDisconnected:
			logger.Warn("disconnected from broker", logger.BrokerAddr(cfg.Broker.Address))
		case connection.EventError:
			logger.Error("connection terminated", logger.Err(cerr))
		}
	}

	var opts []connection.Option
	if deviceMetrics != nil {
		opts = append(opts, connection.WithMetrics(deviceMetrics))
	}
	conn := connection.New(connCfg, t, root, attention, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	signal.Stop(sigCh)

	logger.Info("shutdown signal received")
	return conn.Close()
}

// buildTree assembles the node tree this device serves: the .app/.device
// convenience nodes plus one demo file node backed by an in-memory Ops, so
// a broker can exercise the write/read/crc handlers without any platform
// storage wired up.
func buildTree(cfg *config.Config, m metrics.DeviceMetrics, started time.Time) *tree.Node {
	root := tree.NewNode("", tree.NewMethodTable(tree.BaseMethods()...), tree.NewChildren())

	app := methods.NewAppNode(methods.AppInfo{
		Name:     cfg.Device.Name,
		Version:  cfg.Device.Version,
		DateHook: time.Now,
	})
	device := methods.NewDeviceNode(methods.DeviceInfo{
		Name:         cfg.Device.Name,
		Version:      cfg.Device.Version,
		SerialNumber: cfg.Device.SerialNumber,
		UptimeHook:   func() time.Duration { return time.Since(started) },
	})

	var fileOpts []file.Option
	if m != nil {
		fileOpts = append(fileOpts, file.WithMetrics(m))
	}
	demoFile := file.New("demo", file.NewMemOps(demoFileMaxSize), demoFileMaxSize, 4096, fileOpts...)

	_ = root.Children.Add(app)
	_ = root.Children.Add(device)
	_ = root.Children.Add(demoFile)
	return root
}

// serveMetrics runs the Prometheus HTTP exporter until the process exits;
// a failure here is logged, not fatal, since metrics are always optional.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	logger.Info("metrics endpoint listening", logger.BrokerAddr(addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", logger.Err(err))
	}
}
