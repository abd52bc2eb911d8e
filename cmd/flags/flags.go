package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/CloudNativeWorks/hwlicense/common"
	"github.com/CloudNativeWorks/hwlicense/httpserver"
	"github.com/CloudNativeWorks/hwlicense/internal/config"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// ConfigureServer builds the HTTP server config from the environment
// config, letting command line flags override it.
func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, cfg *config.Config) *httpserver.HTTPServerConfig {
	drainDuration := cfg.DrainDuration
	if cCtx.IsSet(DrainSecondsFlag.Name) {
		drainDuration = time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second
	}
	metricsAddr := cfg.MetricsAddr
	if cCtx.IsSet(MetricsAddrFlag.Name) {
		metricsAddr = cCtx.String(MetricsAddrFlag.Name)
	}

	return &httpserver.HTTPServerConfig{
		ListenAddr:               cfg.ListenAddr,
		MetricsAddr:              metricsAddr,
		AllowedOrigins:           cfg.AllowedOrigins,
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: cfg.ShutdownTimeout,
		ReadTimeout:              cfg.ReadTimeout,
		WriteTimeout:             cfg.WriteTimeout,
	}
}

var EnvFileFlag = &cli.StringFlag{
	Name:  "env-file",
	Value: ".env",
	Usage: "file of KEY=VALUE lines loaded into the environment if present",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request (overrides DRAIN_DURATION)",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Usage: "address to listen on for Prometheus metrics (overrides METRICS_ADDR)",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var CommonFlags = append([]cli.Flag{
	EnvFileFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}, LogFlags...)
