// Tannoy is a PA/ambiance rig: background music with voice lines spoken
// over it on a schedule, managed over HTTP.
//
// Usage:
//
//	tannoy [-addr :8000] [-verbose] [-quiet]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/tannoy/internal/api"
	"github.com/hammamikhairi/tannoy/internal/assets"
	"github.com/hammamikhairi/tannoy/internal/config"
	"github.com/hammamikhairi/tannoy/internal/dsp"
	"github.com/hammamikhairi/tannoy/internal/logger"
	"github.com/hammamikhairi/tannoy/internal/playback"
	"github.com/hammamikhairi/tannoy/internal/radio"
	"github.com/hammamikhairi/tannoy/internal/registry"
	"github.com/hammamikhairi/tannoy/internal/scheduler"
	"github.com/hammamikhairi/tannoy/internal/speech"
)

const envAPIKey = "ELEVENLABS_API_KEY"

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", ":8000", "HTTP listen address")
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	linesPath := flag.String("lines", "voice_lines.json", "path to the voice line catalog")
	audioDir := flag.String("audio-dir", "audio_files", "directory for generated line audio")
	logFile := flag.String("log-file", ".tannoy-logs/tannoy.log", "file to tee logs to (use \"stderr\" for console only)")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	flag.Parse()

	logLevel := logger.LevelNormal
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Tee logs to a file alongside the console so playback glitches can
	// be traced after the fact.
	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		dir := filepath.Dir(*logFile)
		if dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v\n", *logFile, err)
		} else {
			logOut = io.MultiWriter(os.Stderr, f)
			defer f.Close()
		}
	}
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	if err := run(*addr, *configPath, *linesPath, *audioDir, log); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func run(addr, configPath, linesPath, audioDir string, log *logger.Logger) error {
	cfgStore, err := config.Load(configPath, log)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// The environment key backs an unset config value so the file never
	// needs to hold the secret.
	snapshot := func() config.Config {
		cfg := cfgStore.Current()
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv(envAPIKey)
		}
		return cfg
	}

	store, err := assets.NewStore(audioDir, log)
	if err != nil {
		return err
	}

	lines, err := registry.Load(linesPath, store, log)
	if err != nil {
		return err
	}

	backend, err := playback.NewBackend(log)
	if err != nil {
		return fmt.Errorf("initializing audio device: %w", err)
	}

	radioPlayer := radio.NewPlayer(backend, snapshot, log)
	ducker := radio.NewDucker(radioPlayer, log)
	proc := dsp.NewProcessor(log)
	linePlayer := scheduler.NewLinePlayer(store, proc, backend, radioPlayer, ducker, snapshot, log)
	sched := scheduler.New(lines, linePlayer, radioPlayer, store, snapshot, log)
	synth := speech.NewClient(snapshot, log)

	server := api.NewServer(lines, synth, sched, radioPlayer, store, cfgStore, log)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("tannoy listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := sched.Stop(); err != nil {
		log.Warn("scheduler shutdown: %v", err)
	}
	radioPlayer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
