package ui

import (
	"os"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predictor/internal/config"
	"predictor/internal/logging"
	"predictor/processing/detector"
)

func newTestApp(t *testing.T, load detector.Loader) (*DetectApp, *config.Config) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	a := newDetectApp(test.NewApp(), load, cfg, logging.Discard())
	a.mainWin.SetContent(a.layout())
	t.Cleanup(a.mainWin.Close)
	return a, cfg
}

func TestDetectAppInitialState(t *testing.T) {
	a, _ := newTestApp(t, nil)

	assert.Equal(t, "YOLOv8 Application", a.mainWin.Title())
	assert.Equal(t, "You must select a model first", a.statusLabel.Text)
	assert.True(t, a.saveButton.Disabled())
	assert.Equal(t, "model.pt", a.modelSelect.Text)
	assert.Equal(t, widget.DangerImportance, a.statusLabel.Importance)
	assert.Empty(t, a.resultText.Text)
}

func TestDetectAppLoadModelRemembersID(t *testing.T) {
	det := &fakeDetector{}
	var loaded []string
	a, cfg := newTestApp(t, func(modelID string) (detector.Detector, error) {
		loaded = append(loaded, modelID)
		return det, nil
	})

	a.modelSelect.SetText("yolov8s.onnx")
	a.loadModel()

	assert.Equal(t, []string{"yolov8s.onnx"}, loaded)
	assert.Equal(t, "yolov8s.onnx", cfg.GetActiveModel())
	assert.Equal(t, []string{"model.pt", "yolov8s.onnx"}, cfg.GetModels())
	assert.Contains(t, a.statusLabel.Text, "The model is now loaded.")

	require.NoError(t, a.session.Close())
	assert.True(t, det.closed)
}

func TestDetectAppLoadModelEmptyID(t *testing.T) {
	called := false
	a, _ := newTestApp(t, func(string) (detector.Detector, error) {
		called = true
		return nil, nil
	})

	a.modelSelect.SetText("  ")
	a.loadModel()

	assert.False(t, called)
	assert.Nil(t, a.session.Detector())
}

func TestDetectAppCallWithoutImage(t *testing.T) {
	a, _ := newTestApp(t, nil)

	test.Tap(findButton(t, a, "Call YOLOv8"))

	assert.False(t, a.session.Busy())
	assert.Equal(t, "You must select a model first", a.statusLabel.Text)
}

func TestDetectAppSaveEnabledFollowsSession(t *testing.T) {
	a, _ := newTestApp(t, nil)

	a.SetSaveEnabled(true)
	assert.False(t, a.saveButton.Disabled())
	a.SetSaveEnabled(false)
	assert.True(t, a.saveButton.Disabled())
}

func TestDetectAppShutdownLeavesConfigAlone(t *testing.T) {
	t.Chdir(t.TempDir())
	a, cfg := newTestApp(t, nil)
	cfg.SetActiveModel("yolov8s.onnx")

	a.shutdown()

	_, err := os.Stat(config.DefaultConfigPath)
	assert.True(t, os.IsNotExist(err), "config is only written when persistence is enabled")
}

func TestDetectAppShutdownPersistsWhenEnabled(t *testing.T) {
	t.Chdir(t.TempDir())
	a, cfg := newTestApp(t, nil)
	cfg.PersistGUI = true
	cfg.SetActiveModel("yolov8s.onnx")

	a.shutdown()

	loaded := config.LoadConfigFile(config.DefaultConfigPath)
	assert.Equal(t, "yolov8s.onnx", loaded.GetActiveModel())
}

func findButton(t *testing.T, a *DetectApp, text string) *widget.Button {
	t.Helper()
	var walk func(o fyne.CanvasObject) *widget.Button
	walk = func(o fyne.CanvasObject) *widget.Button {
		switch v := o.(type) {
		case *widget.Button:
			if v.Text == text {
				return v
			}
		case *fyne.Container:
			for _, child := range v.Objects {
				if b := walk(child); b != nil {
					return b
				}
			}
		}
		return nil
	}
	b := walk(a.mainWin.Content())
	require.NotNil(t, b, "button %q", text)
	return b
}
