package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"multidex/core"
	"multidex/internal/command"
)

func main() {
	filePath := flag.String("file", core.DefaultDataFilePath, "Path to the backing data file")
	quiet := flag.Bool("quiet", false, "Only log errors")
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	if *quiet {
		logger = level.NewFilter(logger, level.AllowError())
	}

	registry := prometheus.NewRegistry()

	store, err := core.Open(*filePath, core.Options{
		Logger:     logger,
		Registerer: registry,
	})
	if err != nil {
		level.Error(logger).Log("msg", "failed to open store", "path", *filePath, "err", err)
		os.Exit(1)
	}

	done := make(chan error, 1)
	go func() {
		done <- command.Run(os.Stdin, os.Stdout, store, logger)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil {
			level.Error(logger).Log("msg", "input stream failed", "err", err)
		}
	case sig := <-sigs:
		level.Info(logger).Log("msg", "shutting down", "signal", sig)
	}

	if err := store.Close(); err != nil {
		level.Error(logger).Log("msg", "error closing store", "err", err)
	}

	logMetrics(logger, registry)
}

// logMetrics dumps operation totals at shutdown. Metrics are not served over
// the network, so this is the only place they surface.
func logMetrics(logger log.Logger, registry *prometheus.Registry) {
	families, err := registry.Gather()
	if err != nil {
		level.Error(logger).Log("msg", "error gathering metrics", "err", err)
		return
	}

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			var value float64
			switch {
			case metric.GetCounter() != nil:
				value = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				value = metric.GetGauge().GetValue()
			default:
				continue
			}

			name := family.GetName()
			for _, label := range metric.GetLabel() {
				name = fmt.Sprintf("%s{%s=%s}", name, label.GetName(), label.GetValue())
			}

			level.Debug(logger).Log("metric", name, "value", value)
		}
	}
}
