package ui

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"predictor/internal/config"
	"predictor/internal/ui/cwidget"
	"predictor/processing/capture"
	"predictor/processing/detector"
)

const (
	windowTitle     = "YOLOv8 Application"
	defaultSaveName = "result.png"
)

var saveExtensions = []string{".png", ".jpg", ".jpeg"}

type DetectApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	config  *config.Config
	session *Session
	log     *logrus.Logger

	modelSelect  *widget.SelectEntry
	saveButton   *widget.Button
	statusLabel  *widget.Label
	originalPane *cwidget.ImagePane
	outputPane   *cwidget.ImagePane
	resultText   *widget.Entry
}

func CreateApp(load detector.Loader, cfg *config.Config, log *logrus.Logger) *DetectApp {
	return newDetectApp(app.New(), load, cfg, log)
}

func newDetectApp(fa fyne.App, load detector.Loader, cfg *config.Config, log *logrus.Logger) *DetectApp {
	gui := cfg.GetGUI()

	w := fa.NewWindow(windowTitle)
	w.Resize(fyne.NewSize(gui.WindowWidth, gui.WindowHeight))

	a := &DetectApp{
		fyneApp: fa,
		mainWin: w,
		config:  cfg,
		log:     log,
	}

	a.modelSelect = widget.NewSelectEntry(cfg.GetModels())
	a.modelSelect.SetText(cfg.GetActiveModel())

	a.statusLabel = widget.NewLabel("")
	a.statusLabel.Truncation = fyne.TextTruncateEllipsis
	a.statusLabel.Importance = widget.DangerImportance

	a.saveButton = widget.NewButtonWithIcon("Store result", theme.DocumentSaveIcon(), a.storeResult)

	a.originalPane = cwidget.NewImagePane("Display image", gui.PaneFallback)
	a.outputPane = cwidget.NewImagePane("Output", gui.PaneFallback)

	a.resultText = widget.NewMultiLineEntry()
	a.resultText.SetMinRowsVisible(6)

	a.session = NewSession(a, SessionOptions{
		Load:       load,
		Post:       fyne.Do,
		Confidence: cfg.GetGUIConfidence(),
		Log:        log,
	})

	return a
}

func (a *DetectApp) Run() {
	a.mainWin.SetContent(a.layout())

	a.mainWin.SetCloseIntercept(func() {
		a.shutdown()
		a.mainWin.Close()
	})

	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()
}

func (a *DetectApp) layout() fyne.CanvasObject {
	toolbar := container.NewHBox(
		widget.NewLabel("Model:"),
		container.NewGridWrap(fyne.NewSize(180, a.modelSelect.MinSize().Height), a.modelSelect),
		widget.NewButtonWithIcon("Load model", theme.DownloadIcon(), a.loadModel),
		widget.NewButtonWithIcon("New image...", theme.FolderOpenIcon(), a.newImage),
		widget.NewButtonWithIcon("Call YOLOv8", theme.MediaPlayIcon(), a.callDetector),
		a.saveButton,
	)

	top := container.NewBorder(nil, nil, toolbar, nil, a.statusLabel)

	panes := container.NewHSplit(a.originalPane, a.outputPane)
	panes.SetOffset(0.5)

	bottom := container.NewBorder(
		widget.NewLabelWithStyle("Detection result", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		nil, nil, nil,
		a.resultText,
	)

	return container.NewBorder(
		container.NewVBox(top, widget.NewSeparator()),
		container.NewVBox(widget.NewSeparator(), bottom),
		nil, nil,
		container.NewPadded(panes),
	)
}

func (a *DetectApp) shutdown() {
	if err := a.session.Close(); err != nil {
		a.log.WithError(err).Warn("closing detector")
	}
	if !a.config.GetPersistGUI() {
		return
	}
	if err := a.config.SaveByDefault(); err != nil {
		a.log.WithError(err).Warn("saving config")
	}
}

func (a *DetectApp) loadModel() {
	id := strings.TrimSpace(a.modelSelect.Text)
	if id == "" {
		a.ShowWarning(titleError, statusInitial)
		return
	}

	if err := a.session.LoadModel(id); err != nil {
		return
	}

	a.config.SetActiveModel(id)
	a.modelSelect.SetOptions(a.config.GetModels())
}

func (a *DetectApp) newImage() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			a.ShowError(titleError, err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		a.session.SelectImage(path)
	}, a.mainWin)

	d.SetFilter(storage.NewExtensionFileFilter(config.ImageExtensions[:]))
	if l := a.imageDir(); l != nil {
		d.SetLocation(l)
	}
	d.Show()
}

func (a *DetectApp) callDetector() {
	a.session.RunDetection()
}

// storeResult asks for a folder and then a file name. The target is checked
// before anything is written so the input image is never truncated.
func (a *DetectApp) storeResult() {
	if a.session.Result() == nil {
		a.session.SaveResult("")
		return
	}

	d := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			a.ShowError(titleError, err)
			return
		}
		if dir == nil {
			return
		}
		a.askFileName(dir.Path())
	}, a.mainWin)

	if l := a.imageDir(); l != nil {
		d.SetLocation(l)
	}
	d.Show()
}

func (a *DetectApp) askFileName(dir string) {
	name := widget.NewEntry()
	name.SetText(defaultSaveName)
	name.Validator = func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			return errors.New("file name is required")
		}
		if ext := filepath.Ext(s); ext != "" && !capture.HasImageExtension(s, saveExtensions) {
			return errors.Errorf("unsupported extension %s", ext)
		}
		return nil
	}

	items := []*widget.FormItem{
		widget.NewFormItem("Folder", widget.NewLabel(dir)),
		widget.NewFormItem("File name", name),
	}

	dialog.ShowForm("Store result", "Save", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		a.save(filepath.Join(dir, strings.TrimSpace(name.Text)))
	}, a.mainWin)
}

func (a *DetectApp) save(path string) {
	target, err := a.session.SaveTarget(path)
	if err != nil {
		a.ShowError(titleError, err)
		return
	}

	if _, err := os.Stat(target); err == nil {
		msg := fmt.Sprintf("Are you sure you want to overwrite the file\n%s?", filepath.Base(target))
		dialog.ShowConfirm("Overwrite?", msg, func(ok bool) {
			if ok {
				a.session.SaveResult(target)
			}
		}, a.mainWin)
		return
	}

	a.session.SaveResult(target)
}

func (a *DetectApp) imageDir() fyne.ListableURI {
	path := a.session.ImagePath()
	if path == "" {
		return nil
	}
	l, err := storage.ListerForURI(storage.NewFileURI(filepath.Dir(path)))
	if err != nil {
		return nil
	}
	return l
}

func (a *DetectApp) SetStatus(text string) {
	a.statusLabel.SetText(text)
}

func (a *DetectApp) ShowOriginal(img image.Image) {
	a.originalPane.SetImage(img)
}

func (a *DetectApp) ShowAnnotated(img image.Image) {
	a.outputPane.SetImage(img)
}

func (a *DetectApp) SetDetectionText(text string) {
	a.resultText.SetText(text)
}

func (a *DetectApp) SetSaveEnabled(enabled bool) {
	if enabled {
		a.saveButton.Enable()
	} else {
		a.saveButton.Disable()
	}
}

func (a *DetectApp) ShowInfo(title, message string) {
	dialog.ShowInformation(title, message, a.mainWin)
}

func (a *DetectApp) ShowWarning(title, message string) {
	a.log.Warn(message)
	dialog.ShowInformation(title, message, a.mainWin)
}

func (a *DetectApp) ShowError(title string, err error) {
	a.log.WithError(err).Error(title)
	dialog.ShowError(err, a.mainWin)
}
