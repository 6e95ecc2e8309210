// TalkyTime speaks the wall-clock time so a recording captures when it was
// made.
//
// Usage:
//
//	talkytime [-plain] [-http :8089] [-backend auto|azure|espeak|none] [-log-level normal]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/hammamikhairi/talkytime/internal/clock"
	"github.com/hammamikhairi/talkytime/internal/conversation"
	"github.com/hammamikhairi/talkytime/internal/display"
	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/engine"
	"github.com/hammamikhairi/talkytime/internal/logger"
	"github.com/hammamikhairi/talkytime/internal/observe"
	"github.com/hammamikhairi/talkytime/internal/settings"
	"github.com/hammamikhairi/talkytime/internal/speech"
	"github.com/hammamikhairi/talkytime/internal/storage"
	"github.com/hammamikhairi/talkytime/internal/timefmt"
	"github.com/hammamikhairi/talkytime/internal/voices"
	"github.com/hammamikhairi/talkytime/internal/web"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	plain := flag.Bool("plain", false, "read line commands from stdin instead of drawing the page")
	noUI := flag.Bool("no-ui", false, "serve HTTP only, without the page or line commands")
	httpAddr := flag.String("http", "", "address of the HTTP control surface, e.g. :8089 (off when empty)")
	lang := flag.String("lang", "", "preferred voice languages, comma or colon separated (default: from LANGUAGE/LANG)")
	settingsPath := flag.String("settings", "", "YAML file with the settings tree (default: built-in)")
	template := flag.String("template", timefmt.DefaultTemplate, "initial time format")
	logLevel := flag.String("log-level", "normal", "log level: off, normal or verbose")
	logFile := flag.String("log-file", ".talkytime-logs/talkytime.log", "file to write logs to (use \"stderr\" to log to console)")
	backend := flag.String("backend", "auto", "speech backend: auto, azure, espeak or none")
	cacheDir := flag.String("cache-dir", ".talkytime-cache", "directory for the persistent audio cache")
	diskCache := flag.Bool("disk-cache", true, "persist synthesized audio to the cache dir")
	whisperBin := flag.String("whisper-bin", "whisper-cli", "path to the whisper-cpp CLI binary used by check")
	whisperModel := flag.String("whisper-model", "bin/ggml-small.bin", "path to the Whisper GGML model file")
	listen := flag.Duration("listen", 8*time.Second, "how long check records the microphone")
	voicePoll := flag.Duration("voice-poll", 30*time.Second, "how often to look for voice list changes (0 disables)")
	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	// Logs go to a file by default so the page stays clean.
	logOut, closeLog, err := logger.OpenOutput(*logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (falling back to stderr)\n", err)
	}
	defer closeLog()

	// Third-party libs (the whisper transcriber) use the default log package.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(level, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ──────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		log.Error("metrics provider: %v", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				log.Warn("metrics shutdown: %v", err)
			}
		}()
	}
	metrics := observe.DefaultMetrics()

	// ── Settings ─────────────────────────────────────────────────────
	root := settings.Defaults()
	if *settingsPath != "" {
		root, err = settings.Load(*settingsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	// ── Speech ───────────────────────────────────────────────────────
	synth := buildSynthesizer(*backend, log)
	sink := buildSink(synth, log)
	history := storage.NewMemoryStore(storage.DefaultCapacity, log)

	var eng *engine.Engine
	announcer := speech.NewAnnouncer(synth, sink, log,
		speech.WithCacheDir(*cacheDir),
		speech.WithDiskWrite(*diskCache),
		speech.WithAnnouncerMetrics(metrics),
		speech.WithHistory(history),
		speech.WithOnFinish(func(a domain.Announcement) {
			if eng != nil {
				eng.SpeechFinished(a)
			}
		}),
	)

	// ── Engine ───────────────────────────────────────────────────────
	catalog := voices.New(synth, log,
		voices.WithPreferred(voices.PreferredLanguages(*lang, os.Getenv)),
		voices.WithMetrics(metrics),
		voices.WithOnChange(func() {
			if eng != nil {
				eng.VoicesChanged()
			}
		}),
	)

	opts := []engine.Option{
		engine.WithTemplate(*template),
		engine.WithMetrics(metrics),
		engine.WithHistory(history),
		engine.WithClockOptions(clock.WithInterval(clock.DefaultInterval)),
		engine.WithVerifyWindow(*listen, 500*time.Millisecond),
	}
	if rec := buildRecorder(*whisperBin, *whisperModel, log); rec != nil {
		opts = append(opts, engine.WithRecorder(rec))
	}
	eng, err = engine.New(root, announcer, catalog, log, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// ── Run ──────────────────────────────────────────────────────────
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	eng.Start(gctx)
	defer eng.Stop()

	if *voicePoll > 0 {
		g.Go(func() error {
			catalog.Watch(gctx, *voicePoll)
			return nil
		})
	}

	if *httpAddr != "" {
		srv := web.New(eng, log, web.WithMetrics(metrics))
		g.Go(func() error { return srv.ListenAndServe(gctx, *httpAddr) })
	}

	switch {
	case *noUI:
		if *httpAddr == "" {
			fmt.Fprintln(os.Stderr, "error: -no-ui needs -http")
			os.Exit(2)
		}
		log.Info("running headless, press Ctrl+C to stop")
	case *plain:
		notifier := conversation.NewCLINotifier(log, nil)
		shell := conversation.NewShell(eng, notifier, log)
		fmt.Print(display.RenderBanner(0))
		fmt.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to exit."))
		g.Go(func() error {
			defer cancel()
			return shell.Run(gctx, conversation.Lines(os.Stdin))
		})
	default:
		ui := display.NewUI(eng, log)
		eng.Subscribe(ui.Refresh)
		g.Go(func() error {
			defer cancel()
			return ui.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("run: %v", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		eng.Stop()
		os.Exit(1)
	}
	log.Info("bye")
}

// buildSynthesizer picks the speech backend. In auto mode Azure wins when
// its credentials are set, then a local espeak, then the silent no-op.
func buildSynthesizer(backend string, log *logger.Logger) domain.Synthesizer {
	azureKey := os.Getenv(speech.EnvAzureSpeechKey)
	azureRegion := os.Getenv(speech.EnvAzureSpeechRegion)
	espeakBin, haveEspeak := speech.LookEspeak()

	switch backend {
	case speech.BackendAzure, "auto":
		if azureKey != "" && azureRegion != "" {
			log.Info("TTS backend: azure (region=%s)", azureRegion)
			return speech.NewAzureClient(azureKey, azureRegion, log)
		}
		if backend == speech.BackendAzure {
			log.Warn("azure selected but %s / %s are not set", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
			break
		}
		fallthrough
	case speech.BackendEspeak:
		if haveEspeak {
			log.Info("TTS backend: espeak (%s)", espeakBin)
			return speech.NewEspeak(log, speech.WithEspeakBinary(espeakBin))
		}
		log.Warn("espeak-ng / espeak not found on PATH")
	case speech.BackendNoOp, "none":
	default:
		log.Warn("unknown backend %q", backend)
	}
	log.Info("TTS disabled: announcements are logged only")
	return speech.NewNoOp(log)
}

// buildSink opens the audio device. Without one, audio is discarded.
func buildSink(synth domain.Synthesizer, log *logger.Logger) domain.AudioSink {
	if synth.Name() == speech.BackendNoOp {
		return speech.Discard{}
	}
	player, err := speech.NewPlayer(log)
	if err != nil {
		log.Error("audio player init failed, playback disabled: %v", err)
		return speech.Discard{}
	}
	return player
}

// buildRecorder enables the stamp check when the whisper model is present.
func buildRecorder(bin, model string, log *logger.Logger) domain.Recorder {
	if _, err := os.Stat(model); err != nil {
		log.Info("stamp check disabled: whisper model not found at %s", model)
		return nil
	}
	log.Info("stamp check enabled (bin=%s, model=%s)", bin, model)
	return speech.NewRecorder(bin, model, log)
}
