package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tablegauge/tablegauge/pkg/cassandra"
	"github.com/tablegauge/tablegauge/pkg/gauge"
	"github.com/tablegauge/tablegauge/pkg/report"
	"github.com/tablegauge/tablegauge/pkg/sstable"
)

type arrayFlags []string

func (a *arrayFlags) String() string {
	return fmt.Sprintf("%v", *a)
}

func (a *arrayFlags) Set(value string) error {
	*a = append(*a, value)
	return nil
}

func runTestMode(cfg *cassandra.Config, logger log.Logger) {
	level.Info(logger).Log("msg", "running in test mode", "hosts", fmt.Sprintf("%v", cfg.Hosts), "port", cfg.Port)

	session, err := cassandra.NewSession(cfg)
	if err != nil {
		level.Error(logger).Log("msg", "failed to connect", "err", err)
		os.Exit(1)
	}
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	version, err := session.TestConnectivity(ctx)
	if err != nil {
		level.Error(logger).Log("msg", "connectivity test failed", "err", err)
		os.Exit(1)
	}

	level.Info(logger).Log("msg", "test successful: connected to cluster", "release_version", version)
}

func runDataDirMode(dir string, logger log.Logger) {
	level.Info(logger).Log("msg", "scanning for oldest sstable", "dir", dir)

	oldest, err := sstable.FindOldest(dir)
	if err != nil {
		level.Error(logger).Log("msg", "scan failed", "err", err)
		os.Exit(1)
	}
	if oldest == nil {
		level.Info(logger).Log("msg", "no Data.db files found", "dir", dir)
		return
	}

	kvs := []interface{}{
		"msg", "oldest sstable found",
		"path", oldest.Path,
		"modified", oldest.ModTime.Format("2006-01-02 15:04:05"),
		"keyspace", oldest.Keyspace,
		"table", oldest.Table,
	}
	if oldest.TableID != uuid.Nil {
		kvs = append(kvs, "table_id", oldest.TableID)
	}
	level.Info(logger).Log(kvs...)
}

func main() {
	var (
		hosts          string
		port           int
		username       string
		password       string
		consistency    string
		timeout        time.Duration
		connectTimeout time.Duration
		pageSize       int
		sampleLimit    int
		concurrency    int
		keyspaces      arrayFlags
		output         string
		jsonReport     bool
		metricsPort    int
		testMode       bool
		dataDir        string
	)

	flag.StringVar(&hosts, "hosts", "127.0.0.1", "Comma-separated cluster contact points")
	flag.IntVar(&port, "port", 9042, "CQL native protocol port")
	flag.StringVar(&username, "username", "", "Cluster username (optional)")
	flag.StringVar(&password, "password", "", "Cluster password (optional)")
	flag.StringVar(&consistency, "consistency", "one", "Read consistency level for sampling queries")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Query timeout")
	flag.DurationVar(&connectTimeout, "connect-timeout", 5*time.Second, "Initial connection timeout")
	flag.IntVar(&pageSize, "page-size", 5000, "Rows fetched per page while sampling")
	flag.IntVar(&sampleLimit, "sample-limit", 10000, "Max rows sampled per table")
	flag.IntVar(&concurrency, "concurrency", 1, "Tables profiled in parallel")
	flag.Var(&keyspaces, "keyspace", "Keyspace to include (repeatable; default all non-system keyspaces)")
	flag.StringVar(&output, "output", "", "Report file (default stdout)")
	flag.BoolVar(&jsonReport, "json", false, "Emit the report as a single JSON document")
	flag.IntVar(&metricsPort, "metrics-port", 0, "Port to expose Prometheus metrics (0 disables)")
	flag.BoolVar(&testMode, "test", false, "Test mode: connect, read the cluster version, and exit without profiling")
	flag.StringVar(&dataDir, "data-dir", "", "Scan this Cassandra data directory for the oldest SSTable and exit")

	flag.Parse()

	// Setup logger
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)

	// Setup metrics
	reg := prometheus.NewRegistry()
	metrics := gauge.NewMetrics(reg)

	// Start metrics server when requested
	var metricsServer *http.Server
	if metricsPort > 0 {
		metricsAddr := fmt.Sprintf(":%d", metricsPort)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

		metricsServer = &http.Server{
			Addr:    metricsAddr,
			Handler: mux,
		}

		go func() {
			level.Info(logger).Log("msg", "starting metrics server", "addr", metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				level.Error(logger).Log("msg", "metrics server failed", "err", err)
				os.Exit(1)
			}
		}()
	}

	// Data directory mode needs no cluster connection
	if dataDir != "" {
		runDataDirMode(dataDir, logger)
		return
	}

	// Create connection config
	connCfg := &cassandra.Config{
		Port:           port,
		Username:       username,
		Password:       password,
		Consistency:    consistency,
		Timeout:        timeout,
		ConnectTimeout: connectTimeout,
		PageSize:       pageSize,
	}
	connCfg.SetHostsFromString(hosts)

	// Test mode: connect, verify, and exit
	if testMode {
		runTestMode(connCfg, logger)
		return
	}

	session, err := cassandra.NewSession(connCfg)
	if err != nil {
		level.Error(logger).Log("msg", "failed to connect", "err", err)
		os.Exit(1)
	}
	defer session.Close()

	// Report destination
	var out io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			level.Error(logger).Log("msg", "failed to create report file", "path", output, "err", err)
			os.Exit(1)
		}
		defer func() {
			if err := f.Close(); err != nil {
				level.Error(logger).Log("msg", "failed to close report file", "path", output, "err", err)
			}
		}()
		out = f
	}
	writer := report.NewWriter(out, jsonReport)

	runCfg := &gauge.Config{
		SampleLimit: sampleLimit,
		Concurrency: concurrency,
		Keyspaces:   keyspaces,
	}

	runner, err := gauge.NewRunner(runCfg, session, writer, metrics, logger)
	if err != nil {
		level.Error(logger).Log("msg", "failed to create runner", "err", err)
		os.Exit(1)
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		level.Info(logger).Log("msg", "received shutdown signal")
		cancel()
	}()

	level.Info(logger).Log(
		"msg", "starting tablegauge",
		"hosts", hosts,
		"run_id", writer.RunID(),
		"sample_limit", sampleLimit,
		"concurrency", concurrency,
	)

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		level.Error(logger).Log("msg", "run failed", "err", err)
		os.Exit(1)
	}

	// Shutdown metrics server
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			level.Error(logger).Log("msg", "metrics server shutdown failed", "err", err)
		}
	}

	level.Info(logger).Log("msg", "shutdown complete")
}
