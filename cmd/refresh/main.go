// Command refresh runs one leaderboard refresh pass and prints the output
// document as JSON. It exits 1 when any partition failed and 2 when the run
// could not start.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/ladder-cache/internal/app"
	"github.com/riskibarqy/ladder-cache/internal/config"
	"github.com/riskibarqy/ladder-cache/internal/observability"
	"github.com/riskibarqy/ladder-cache/internal/platform/logging"
	"github.com/riskibarqy/ladder-cache/internal/usecase"
)

const (
	exitOK       = 0
	exitFailures = 1
	exitAborted  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	req, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitAborted
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitAborted
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Service: cfg.ServiceName + "-refresh", Env: cfg.AppEnv})
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		return exitAborted
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("shutdown uptrace", "error", err)
		}
	}()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		return exitAborted
	}
	defer func() { _ = application.Close() }()

	resp, err := application.Refresh.Execute(ctx, req)
	if err != nil {
		logger.Error("leaderboard refresh aborted", "error", err)
		return exitAborted
	}

	if err := writeResponse(stdout, resp); err != nil {
		logger.Error("write refresh output", "error", err)
		return exitAborted
	}
	return exitCode(resp)
}

// parseFlags maps command line flags onto the refresh invocation contract.
func parseFlags(args []string, output io.Writer) (usecase.RefreshRequest, error) {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		req           usecase.RefreshRequest
		regionDelayMs int64 = -1
	)
	fs.StringVar(&req.Game, "game", usecase.GameAll, "game to refresh: lol, tft or all")
	fs.StringVar(&req.Tier, "tier", "", "ladder tier, e.g. CHALLENGER")
	fs.StringVar(&req.Division, "division", "", "ladder division: I, II, III or IV")
	fs.BoolVar(&req.ForceRefresh, "force", false, "refresh partitions even when the cached snapshot is fresh")
	fs.StringVar(&req.LoLRegions, "lol-regions", "", "comma separated LoL platform regions overriding the defaults")
	fs.StringVar(&req.TFTRegions, "tft-regions", "", "comma separated TFT platform regions overriding the defaults")
	fs.Int64Var(&regionDelayMs, "region-delay-ms", -1, "pause between regions in milliseconds; negative keeps the configured delay")

	if err := fs.Parse(args); err != nil {
		return usecase.RefreshRequest{}, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected arguments: %v", fs.Args())
		fmt.Fprintln(output, err)
		return usecase.RefreshRequest{}, err
	}
	if regionDelayMs >= 0 {
		req.RegionDelayMs = &regionDelayMs
	}
	return req, nil
}

func writeResponse(w io.Writer, resp usecase.RefreshResponse) error {
	raw, err := sonic.ConfigStd.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(raw, '\n'))
	return err
}

func exitCode(resp usecase.RefreshResponse) int {
	if resp.FailureCount() > 0 {
		return exitFailures
	}
	return exitOK
}
