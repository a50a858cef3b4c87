package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talkback-audio/talkback/internal/audio"
	"github.com/talkback-audio/talkback/internal/config"
	"github.com/talkback-audio/talkback/internal/logger"
	"github.com/talkback-audio/talkback/internal/player"
	"github.com/talkback-audio/talkback/internal/recorder"
	"github.com/talkback-audio/talkback/internal/session"
	"github.com/talkback-audio/talkback/internal/wav"
)

const version = "0.1.0"

// App holds all application state
type App struct {
	logger    *logger.Logger
	config    *config.Config
	transport *audio.PortAudioTransport
	machine   *session.Machine
}

func main() {
	configPath := flag.String("config", "talkback.yaml", "path to the YAML configuration file")
	listDevices := flag.Bool("devices", false, "list capture-capable audio devices and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("talkback v%s\n", version)
		return
	}

	app := &App{}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	app.config = cfg

	app.logger, err = logger.New(logger.Config{
		Level: logger.ParseLevel(cfg.Log.Level),
		File:  cfg.Log.File,
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer app.logger.Close()

	app.logger.Info("talkback v%s starting", version)

	app.transport, err = audio.NewPortAudioTransport()
	if err != nil {
		app.logger.Error("failed to initialize audio: %v", err)
		os.Exit(1)
	}
	defer app.transport.Close()

	if *listDevices {
		if err := app.printDevices(); err != nil {
			app.logger.Error("failed to list devices: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := app.run(); err != nil {
		app.logger.Error("%v", err)
		app.transport.Close()
		os.Exit(1)
	}
}

func (a *App) printDevices() error {
	devices, err := a.transport.ListDevices()
	if err != nil {
		return err
	}
	for _, dev := range devices {
		marker := " "
		if dev.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %3d  %s\n", marker, dev.ID, dev.Name)
	}
	return nil
}

func (a *App) run() error {
	cfg := a.config
	info := cfg.StreamInfo()

	err := a.transport.Open(audio.Config{
		DeviceID:        cfg.Audio.DeviceID,
		Info:            info,
		Latency:         cfg.LatencyMode(),
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		OutputGain:      cfg.Audio.OutputGain,
	})
	if err != nil {
		return fmt.Errorf("failed to open transport: %w", err)
	}
	a.logger.Info("transport open: %d Hz, %d ch, %d bit",
		info.SampleRateHz, info.Channels, info.BitsPerSample)

	recFormat, err := wav.ParseFormat(cfg.Recording.Format)
	if err != nil {
		return err
	}
	libFormat, err := wav.ParseFormat(cfg.Library.Format)
	if err != nil {
		return err
	}

	a.machine = session.New(a.transport, info, session.Config{
		Record: recorder.Config{
			Path:             cfg.Recording.Path,
			Format:           recFormat,
			Seconds:          cfg.Recording.Seconds,
			BufferBytes:      cfg.Recording.BufferBytes,
			ProgressInterval: cfg.Recording.ProgressEverySamples,
			OnProgress: func(recorded, target int) {
				a.logger.Info("recording progress: %d / %d samples", recorded, target)
			},
		},
		Library: player.Request{
			Path:   cfg.Library.Path,
			Format: libFormat,
		},
		PlaybackBufferBytes: cfg.Session.PlaybackBufferBytes,
		FlushEnabled:        cfg.Session.FlushEnabled,
		FlushDuration:       time.Duration(cfg.Session.FlushMs) * time.Millisecond,
	}, a.logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	tick := time.Duration(cfg.Session.TickMs) * time.Millisecond
	failures := 0

	for a.machine.State() != session.Done {
		select {
		case sig := <-sigCh:
			return fmt.Errorf("received signal %v, aborting session", sig)
		default:
		}

		if err := a.machine.Step(); err != nil {
			failures++
			a.logger.Error("session step failed (attempt %d): %v", failures, err)
			if max := cfg.Session.MaxStepFailures; max > 0 && failures >= max {
				return fmt.Errorf("aborting after %d consecutive step failures", failures)
			}
		} else {
			failures = 0
		}

		if tick > 0 {
			time.Sleep(tick)
		}
	}

	a.logger.Info("session complete")
	return nil
}
