// clapd listens to a microphone and reports clap sequences.
// It serves a JSON control API and a websocket event feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-clap/internal/config"
	"github.com/teslashibe/go-clap/internal/log"
	"github.com/teslashibe/go-clap/pkg/audioio"
	"github.com/teslashibe/go-clap/pkg/clap"
	"github.com/teslashibe/go-clap/pkg/listener"
	"github.com/teslashibe/go-clap/pkg/web"
)

type options struct {
	file config.File
	demo bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "clapd: %v\n", err)
		os.Exit(2)
	}

	logger := log.Init(opts.file.Log.Level, opts.file.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, logger); err != nil {
		log.Error("clapd failed", "error", err)
		os.Exit(1)
	}
}

// parseFlags layers defaults, the config file, CLAP_* variables and
// finally the flags that were set explicitly.
func parseFlags() (options, error) {
	var opts options
	def := config.Default()

	configPath := flag.String("config", "", "Path to a YAML config file")
	backend := flag.String("backend", string(def.Audio.Backend), "Audio backend: auto, portaudio, alsa, coreaudio, webrtc, mock")
	threshold := flag.Float64("threshold", def.Detector.Threshold, "Clap amplitude threshold (RMS)")
	port := flag.String("port", config.DefaultPort, "Control surface port")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	required := flag.Int("required", def.Detector.Detector.RequiredClaps, "Claps needed to complete a sequence")
	minInterval := flag.Duration("min-interval", def.Detector.Detector.MinInterval, "Gap at or below which a clap is an echo")
	maxInterval := flag.Duration("max-interval", def.Detector.Detector.MaxInterval, "Gap above which an attempt is abandoned")
	demo := flag.Bool("demo", false, "With -backend mock, clap three times every few seconds")
	flag.Parse()

	f := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return opts, err
		}
		f = loaded
	}
	if err := f.ApplyEnv(); err != nil {
		return opts, err
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "backend":
			f.Audio.Backend = audioio.Backend(*backend)
		case "threshold":
			f.Detector.Threshold = *threshold
		case "port":
			f.Web.Addr = ":" + *port
		case "debug":
			if *debug {
				f.Log.Level = "debug"
			}
		case "required":
			f.Detector.Detector.RequiredClaps = *required
		case "min-interval":
			f.Detector.Detector.MinInterval = *minInterval
		case "max-interval":
			f.Detector.Detector.MaxInterval = *maxInterval
		}
	})

	if err := f.Validate(); err != nil {
		return opts, fmt.Errorf("invalid configuration: %w", err)
	}
	opts.file = f
	opts.demo = *demo
	return opts, nil
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	src, err := newSource(opts, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	l, err := listener.New(src, opts.file.Detector, listener.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create listener: %w", err)
	}
	l.OnEvent(logEvent)

	srv := web.NewServer(opts.file.Web, l, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	webErr := make(chan error, 1)
	go func() {
		webErr <- srv.Run(ctx)
	}()

	listenErr := l.Run(ctx)
	cancel()

	if err := <-webErr; err != nil && listenErr == nil {
		listenErr = fmt.Errorf("control surface: %w", err)
	}
	if errors.Is(listenErr, context.Canceled) {
		return nil
	}
	return listenErr
}

func newSource(opts options, logger *slog.Logger) (audioio.Source, error) {
	cfg := opts.file.Audio
	if opts.demo && cfg.Backend == audioio.BackendMock {
		var at []time.Duration
		for cycle := time.Duration(0); cycle < 10*time.Minute; cycle += 5 * time.Second {
			at = append(at, cycle+time.Second, cycle+1500*time.Millisecond, cycle+2*time.Second)
		}
		return audioio.NewMockSource(cfg, logger, audioio.WithClaps(6000, 40*time.Millisecond, at...)), nil
	}
	return audioio.NewSource(cfg, logger)
}

func logEvent(ev listener.Event) {
	switch ev.Kind {
	case clap.ClapDetected:
		log.Info("clap", "ordinal", ev.Ordinal, "amplitude", fmt.Sprintf("%.0f", ev.Amplitude), "attempt", ev.AttemptID)
	case clap.SequenceCompleted:
		log.Info("sequence completed", "attempt", ev.AttemptID)
	case clap.SequenceReset:
		log.Info("sequence reset", "attempt", ev.AttemptID)
	}
}
