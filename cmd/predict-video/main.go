package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"predictor/internal/config"
	"predictor/internal/logging"
	"predictor/processing/batch"
	"predictor/processing/capture/opencv"
	"predictor/processing/detector"
)

func main() {
	def := batch.DefaultVideoOptions()

	app := &cli.App{
		Name:  "predict-video",
		Usage: "detect objects in every frame of a video and write an annotated copy",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "video", Aliases: []string{"v"}, Value: def.VideoPath, Usage: "input video"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: def.OutputPath, Usage: "annotated output video"},
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Value: def.ModelID, Usage: "model weights or ws:// detector URL"},
			&cli.Float64Flag{Name: "conf", Value: float64(def.Confidence), Usage: "confidence threshold"},
			&cli.StringFlag{Name: "config", Value: config.DefaultConfigPath, Usage: "config file"},
			&cli.StringFlag{Name: "log-level", Usage: "log level (overrides config)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		if errors.Is(err, batch.ErrMissingInput) {
			os.Exit(1)
		}
		logging.New("error").Fatalf("%+v", err)
	}
}

func run(c *cli.Context) error {
	envErr := config.LoadEnv(config.DefaultEnvPath)
	cfg := config.LoadConfigFile(c.String("config"))

	level := cfg.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	log := logging.New(level)
	if cfg.LogFile != "" {
		logging.WithFile(log, cfg.LogFile)
	}
	if envErr != nil {
		log.WithError(envErr).Warn("ignoring .env file")
	}

	conf := cfg.GetBatchConfidence()
	if c.IsSet("conf") {
		conf = float32(c.Float64("conf"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &batch.Runner{
		Load:        detector.NewLoader(detector.OptionsFromConfig(cfg, log)),
		OpenVideo:   opencv.OpenVideo,
		CreateVideo: opencv.CreateVideo,
		Out:         os.Stdout,
		Log:         log,
	}

	return runner.ProcessVideo(ctx, batch.VideoOptions{
		VideoPath:  c.String("video"),
		OutputPath: c.String("output"),
		ModelID:    c.String("model"),
		Confidence: conf,
	})
}
