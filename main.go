package main

import (
	"predictor/internal/config"
	"predictor/internal/logging"
	"predictor/internal/ui"
	"predictor/processing/detector"
)

func main() {
	envErr := config.LoadEnv(config.DefaultEnvPath)

	cfg := config.LoadConfigFile(config.DefaultConfigPath)
	log := logging.New(cfg.LogLevel)
	if cfg.LogFile != "" {
		logging.WithFile(log, cfg.LogFile)
	}
	if envErr != nil {
		log.WithError(envErr).Warn("ignoring .env file")
	}

	load := detector.NewLoader(detector.OptionsFromConfig(cfg, log))

	app := ui.CreateApp(load, cfg, log)

	app.Run()
}
