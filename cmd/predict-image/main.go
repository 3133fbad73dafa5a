package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"predictor/internal/config"
	"predictor/internal/logging"
	"predictor/processing/batch"
	"predictor/processing/detector"
)

func main() {
	def := batch.DefaultImageOptions()

	app := &cli.App{
		Name:  "predict-image",
		Usage: "detect objects in a single image and write an annotated copy",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "image", Aliases: []string{"i"}, Value: def.ImagePath, Usage: "input image"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: def.OutputPath, Usage: "annotated output image"},
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

	runner := &batch.Runner{
		Load: detector.NewLoader(detector.OptionsFromConfig(cfg, log)),
		Out:  os.Stdout,
		Log:  log,
	}

	return runner.ProcessImage(context.Background(), batch.ImageOptions{
		ImagePath:  c.String("image"),
		OutputPath: c.String("output"),
		ModelID:    c.String("model"),
		Confidence: conf,
	})
}
