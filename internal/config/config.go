package config

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	DefaultConfigPath string = "config.json"
	DefaultEnvPath    string = ".env"

	DefaultModel string = "model.pt"

	EnvOnnxRuntimeLib = "ONNXRUNTIME_LIB"
	EnvLogLevel       = "PREDICT_LOG_LEVEL"
)

// ImageExtensions lists the raster formats the image picker accepts.
var ImageExtensions = [...]string{".png", ".jpg", ".jpeg", ".bmp", ".webp"}

type DetectorConfig struct {
	InputSize      int     `json:"input_size"`
	IoUThreshold   float32 `json:"iou_threshold"`
	OnnxRuntimeLib string  `json:"onnxruntime_lib"`
}

type GUIConfig struct {
	WindowWidth  float32 `json:"window_width"`
	WindowHeight float32 `json:"window_height"`
	PaneFallback int     `json:"pane_fallback"`
}

type Config struct {
	mu sync.RWMutex

	Models          []string `json:"models"`
	ActiveModel     string   `json:"active_model"`
	GUIConfidence   float32  `json:"gui_confidence"`
	BatchConfidence float32  `json:"batch_confidence"`
	LogLevel        string   `json:"log_level"`
	LogFile         string   `json:"log_file,omitempty"`

	// PersistGUI makes the GUI write the active model and model list back to
	// config.json when the window closes.
	PersistGUI bool `json:"persist_gui"`

	Detector DetectorConfig `json:"detector"`
	GUI      GUIConfig      `json:"gui"`
}

func (c *Config) GetModels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.Models))
	copy(out, c.Models)
	return out
}

func (c *Config) GetActiveModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ActiveModel
}

// SetActiveModel records id as the active model and appends it to the
// selector options when it is new.
func (c *Config) SetActiveModel(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ActiveModel = id
	for _, m := range c.Models {
		if m == id {
			return
		}
	}
	c.Models = append(c.Models, id)
}

func (c *Config) GetGUIConfidence() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.GUIConfidence
}

func (c *Config) GetBatchConfidence() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.BatchConfidence
}

func (c *Config) GetPersistGUI() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.PersistGUI
}

func (c *Config) GetDetector() DetectorConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Detector
}

func (c *Config) GetGUI() GUIConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.GUI
}

func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(err, "open config %s", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "encode config")
	}
	return nil
}

func (c *Config) SaveByDefault() error {
	return c.Save(DefaultConfigPath)
}

// LoadConfigFile reads path on top of the defaults. A missing or malformed
// file leaves the defaults in place. Environment overrides are applied last.
func LoadConfigFile(path string) *Config {
	var cfg *Config = NewDefaultConfig()

	if _, err := os.Stat(path); err == nil {
		f, err := os.Open(path)
		if err == nil {
			defer f.Close()

			loaded := NewDefaultConfig()
			if err := json.NewDecoder(f).Decode(loaded); err == nil {
				cfg = loaded
			}
		}
	}

	cfg.normalize()
	cfg.applyEnv()

	return cfg
}

// LoadEnv loads a .env file into the process environment if one exists.
// Variables already set are not overridden.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return errors.Wrapf(godotenv.Load(path), "load %s", path)
}

func (c *Config) applyEnv() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Detector.OnnxRuntimeLib = getEnv(EnvOnnxRuntimeLib, c.Detector.OnnxRuntimeLib)
	c.LogLevel = strings.ToLower(getEnv(EnvLogLevel, c.LogLevel))
}

func (c *Config) normalize() {
	def := NewDefaultConfig()

	if len(c.Models) == 0 {
		c.Models = def.Models
	}
	if c.ActiveModel == "" {
		c.ActiveModel = c.Models[0]
	}
	if c.GUIConfidence <= 0 || c.GUIConfidence > 1 {
		c.GUIConfidence = def.GUIConfidence
	}
	if c.BatchConfidence <= 0 || c.BatchConfidence > 1 {
		c.BatchConfidence = def.BatchConfidence
	}
	if c.Detector.InputSize <= 0 {
		c.Detector.InputSize = def.Detector.InputSize
	}
	if c.Detector.IoUThreshold <= 0 || c.Detector.IoUThreshold > 1 {
		c.Detector.IoUThreshold = def.Detector.IoUThreshold
	}
	if c.GUI.PaneFallback <= 0 {
		c.GUI.PaneFallback = def.GUI.PaneFallback
	}
	if c.GUI.WindowWidth <= 0 || c.GUI.WindowHeight <= 0 {
		c.GUI.WindowWidth, c.GUI.WindowHeight = def.GUI.WindowWidth, def.GUI.WindowHeight
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func NewDefaultConfig() *Config {
	return &Config{
		Models:          []string{DefaultModel},
		ActiveModel:     DefaultModel,
		GUIConfidence:   0.25,
		BatchConfidence: 0.1,
		LogLevel:        "info",
		Detector: DetectorConfig{
			InputSize:    640,
			IoUThreshold: 0.7,
		},
		GUI: GUIConfig{
			WindowWidth:  1000,
			WindowHeight: 700,
			PaneFallback: 400,
		},
	}
}
