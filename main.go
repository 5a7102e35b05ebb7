package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/Perf-Org-5KRepos/streamtotext/audio"
	"github.com/Perf-Org-5KRepos/streamtotext/capture"
	"github.com/Perf-Org-5KRepos/streamtotext/config"
	"github.com/Perf-Org-5KRepos/streamtotext/media"
	"github.com/Perf-Org-5KRepos/streamtotext/metrics"
	"github.com/Perf-Org-5KRepos/streamtotext/playback"
	"github.com/Perf-Org-5KRepos/streamtotext/transcribe"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Speech to text utility.

Usage: streamtotext <command> [flags]

Commands:
  transcribe    Transcribe squelch-gated microphone audio
  detect-level  Calibrate the squelch level from ambient audio
  record        Record each detected utterance to a wav file
  play          Play an audio file through the default output device
  list-devices  List local audio devices
  device-info   Show info about one audio device
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "transcribe":
		err = cmdTranscribe(os.Args[2:])
	case "detect-level":
		err = cmdDetectLevel(os.Args[2:])
	case "record":
		err = cmdRecord(os.Args[2:])
	case "play":
		err = cmdPlay(os.Args[2:])
	case "list-devices":
		err = cmdListDevices(os.Args[2:])
	case "device-info":
		err = cmdDeviceInfo(os.Args[2:])
	default:
		usage()
	}

	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("command failed")
	}
}

func setup(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics endpoint failed")
			}
		}()
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics endpoint up")
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// gatedMicrophone builds the mic -> rate converter -> squelch chain
// from the configuration.
func gatedMicrophone(cfg *config.Config) (*audio.Squelch, error) {
	var src audio.Source = capture.NewMicrophone(&capture.Config{
		Rate:   cfg.CaptureRate,
		Frames: cfg.CaptureFrames,
	})

	if cfg.CaptureRate != cfg.TargetRate {
		conv, err := audio.NewRateConverter(src, cfg.TargetRate)
		if err != nil {
			return nil, err
		}
		src = conv
	}

	stat := audio.MedianRMS
	if cfg.Statistic == "flux" {
		stat = audio.MedianFlux
	}

	return audio.NewSquelch(src, &audio.SquelchConfig{
		SampleSize:    cfg.SampleSize,
		PrefixSamples: cfg.PrefixSamples,
		Level:         cfg.SquelchLevel,
		Statistic:     stat,
	})
}

func calibrate(ctx context.Context, cfg *config.Config, squelched *audio.Squelch) error {
	if cfg.SquelchLevel != 0 {
		return nil
	}

	log.Info().Int("seconds", cfg.DetectSeconds).Msg("detecting squelch level")
	level, err := squelched.DetectLevel(ctx, time.Duration(cfg.DetectSeconds)*time.Second, cfg.Percentile)
	if err != nil {
		return err
	}
	log.Info().Float64("level", level).Msg("squelch level detected")
	return nil
}

func cmdTranscribe(args []string) error {
	fs := flag.NewFlagSet("transcribe", flag.ExitOnError)
	cfgPath := fs.String("c", "", "config file")
	modelPath := fs.String("m", "", "whisper model file (overrides config)")
	_ = fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *modelPath != "" {
		cfg.ModelPath = *modelPath
	}
	if cfg.ModelPath == "" {
		return fmt.Errorf("whisper model file not specified")
	}
	setup(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	squelched, err := gatedMicrophone(cfg)
	if err != nil {
		return err
	}
	if err := calibrate(ctx, cfg, squelched); err != nil {
		return err
	}

	model, err := whisper.New(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	defer model.Close()

	engine, err := transcribe.New(&transcribe.Config{Model: model})
	if err != nil {
		return err
	}

	events, err := engine.Transcribe(ctx, squelched)
	if err != nil {
		return err
	}

	for ev := range events {
		fmt.Printf("[%s -> %s] %s\n",
			ev.Start.Format("15:04:05.000"), ev.End.Format("15:04:05.000"), ev.Text)
	}
	return nil
}

func cmdDetectLevel(args []string) error {
	fs := flag.NewFlagSet("detect-level", flag.ExitOnError)
	cfgPath := fs.String("c", "", "config file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	cfg.SquelchLevel = 0 // force calibration
	setup(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	squelched, err := gatedMicrophone(cfg)
	if err != nil {
		return err
	}
	if err := calibrate(ctx, cfg, squelched); err != nil {
		return err
	}

	fmt.Printf("%f\n", squelched.Level())
	return nil
}

func cmdRecord(args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	cfgPath := fs.String("c", "", "config file")
	dir := fs.String("dir", ".", "directory for recorded wav files")
	_ = fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	setup(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	squelched, err := gatedMicrophone(cfg)
	if err != nil {
		return err
	}
	if err := calibrate(ctx, cfg, squelched); err != nil {
		return err
	}

	outFs := afero.NewBasePathFs(afero.NewOsFs(), *dir)
	recorder, err := playback.NewRecorder(outFs, squelched, cfg.TargetRate)
	if err != nil {
		return err
	}

	names, err := recorder.Record(ctx)
	for _, name := range names {
		fmt.Println(filepath.Join(*dir, name))
	}
	if ctx.Err() != nil {
		// Interrupted recording is still a successful recording.
		return nil
	}
	return err
}

func cmdPlay(args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	cfgPath := fs.String("c", "", "config file")
	file := fs.String("f", "", "audio file to play (wav, mp3 or ogg)")
	_ = fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("no file specified")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	setup(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	osFs := afero.NewOsFs()
	var src audio.Source
	switch strings.ToLower(filepath.Ext(*file)) {
	case ".wav":
		src, err = media.NewWaveSource(osFs, *file, 0)
	case ".mp3":
		src, err = media.NewMP3Source(osFs, *file, 0)
	case ".ogg":
		src, err = media.NewVorbisSource(osFs, *file, 0)
	default:
		return fmt.Errorf("unsupported file type: %s", *file)
	}
	if err != nil {
		return err
	}

	// Normalize to the target rate so the output stream can be opened
	// before the file's own rate is known.
	conv, err := audio.NewRateConverter(src, cfg.TargetRate)
	if err != nil {
		return err
	}

	player, err := playback.NewPlayer(conv, cfg.TargetRate)
	if err != nil {
		return err
	}
	return player.Play(ctx)
}

func cmdListDevices(args []string) error {
	devices, err := capture.Devices()
	if err != nil {
		return err
	}
	for _, d := range devices {
		fmt.Println(d)
	}
	return nil
}

func cmdDeviceInfo(args []string) error {
	fs := flag.NewFlagSet("device-info", flag.ExitOnError)
	index := fs.Int("i", 0, "device index")
	_ = fs.Parse(args)

	device, err := capture.Device(*index)
	if err != nil {
		return err
	}
	fmt.Println(device)
	return nil
}
