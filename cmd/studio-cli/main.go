package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/pixeldojo-studio/internal/bootstrap"
	"github.com/cuongbtq/pixeldojo-studio/internal/config"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/controller"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/domain"
	"github.com/cuongbtq/pixeldojo-studio/shared/logger"
)

type options struct {
	configPath string
	imagePath  string
	sample     bool
	prompt     string
	duration   int
	fastMode   bool
	outDir     string
	check      bool
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() *options {
	defaultConfigPath := os.Getenv("STUDIO_CLI_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/studio-cli/config.yaml"
	}

	opts := &options{}
	flag.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to configuration file")
	flag.StringVar(&opts.imagePath, "image", "", "Image file to animate")
	flag.BoolVar(&opts.sample, "sample", false, "Use the bundled sample image")
	flag.StringVar(&opts.prompt, "prompt", "", "Motion prompt (default from config)")
	flag.IntVar(&opts.duration, "duration", 0, "Video duration in seconds, 5-60 (default from config)")
	flag.BoolVar(&opts.fastMode, "fast", false, "Enable fast mode")
	flag.StringVar(&opts.outDir, "out", "", "Directory for the finished video (default from config)")
	flag.BoolVar(&opts.check, "check", false, "Only check backend health")
	flag.Parse()

	return opts
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateClientConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	studio, err := bootstrap.NewStudio(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := studio.Close(context.Background()); err != nil {
			appLogger.Error("Failed to release resources", slog.Any("error", err))
		}
	}()

	if opts.check {
		if err := studio.Backend.Health(ctx); err != nil {
			return fmt.Errorf("backend %s is unhealthy: %w", studio.Backend.BaseURL(), err)
		}
		appLogger.Info("Backend is healthy", slog.String("backend", studio.Backend.BaseURL()))
		return nil
	}

	if err := selectImage(studio.Controller, opts); err != nil {
		return err
	}

	applyDefaults(opts, cfg)

	return generate(ctx, appLogger, studio.Controller, opts)
}

func applyDefaults(opts *options, cfg *config.Config) {
	if opts.prompt == "" {
		opts.prompt = cfg.Studio.DefaultPrompt
	}
	if opts.duration == 0 {
		opts.duration = cfg.Studio.DefaultDuration
	}
	if opts.outDir == "" {
		opts.outDir = cfg.Studio.OutputDir
	}
}

func selectImage(studio *controller.Controller, opts *options) error {
	switch {
	case opts.sample && opts.imagePath != "":
		return errors.New("-image and -sample are mutually exclusive")
	case opts.sample:
		if _, err := studio.SelectSampleImage(); err != nil {
			return fmt.Errorf("failed to select sample image: %w", err)
		}
	case opts.imagePath != "":
		data, err := os.ReadFile(opts.imagePath)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		if _, err := studio.SelectImage(domain.ImageSource{
			Origin:   domain.OriginPicker,
			Filename: filepath.Base(opts.imagePath),
			Data:     data,
		}); err != nil {
			return fmt.Errorf("failed to select image: %w", err)
		}
	default:
		return errors.New("one of -image or -sample is required")
	}
	return nil
}

// generate submits the job, logs progress until a terminal state and saves the video
func generate(ctx context.Context, appLogger *logger.Logger, studio *controller.Controller, opts *options) error {
	updates, unsubscribe := studio.Subscribe()
	defer unsubscribe()

	state, err := studio.Submit(ctx, controller.SubmitInput{
		Prompt:   opts.prompt,
		Duration: opts.duration,
		FastMode: opts.fastMode,
	})
	if err != nil {
		return err
	}

	appLogger.Info("Generation started",
		slog.String("job_id", state.JobID),
		slog.String("prompt", opts.prompt),
		slog.Int("duration", opts.duration),
		slog.Bool("fast_mode", opts.fastMode),
	)

	lastProgress, lastMessage := -1, ""
	for {
		select {
		case <-ctx.Done():
			studio.Reset()
			appLogger.Warn("Interrupted, the backend job keeps running", slog.String("job_id", state.JobID))
			return ctx.Err()

		case s, ok := <-updates:
			if !ok {
				return controller.ErrClosed
			}

			if s.Progress != lastProgress || s.Message != lastMessage {
				lastProgress, lastMessage = s.Progress, s.Message
				appLogger.Info("Generation progress",
					slog.Int("progress", s.Progress),
					slog.String("message", s.Message),
				)
			}

			switch s.Status {
			case domain.StatusCompleted:
				path, err := studio.SaveResult(ctx, opts.outDir)
				if err != nil {
					return fmt.Errorf("failed to save video: %w", err)
				}
				appLogger.Info("Video ready",
					slog.String("job_id", s.JobID),
					slog.String("url", s.ResultURL),
					slog.String("path", path),
				)
				return nil

			case domain.StatusFailed:
				return fmt.Errorf("generation failed: %s", s.Message)

			case domain.StatusIdle:
				return errors.New("generation was reset")
			}
		}
	}
}
