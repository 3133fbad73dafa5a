package capture

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadImage decodes a still image. The result is in RGBA order whatever the
// source encoding.
func ReadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "read image %s", path)
	}
	return img, nil
}

// WriteImage encodes img using the format implied by the path extension.
func WriteImage(path string, img image.Image) error {
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return errors.Wrapf(err, "write image %s", path)
	}
	return errors.Wrapf(imaging.Save(img, path, imaging.JPEGQuality(95)), "write image %s", path)
}

// HasImageExtension reports whether path ends in one of exts, ignoring case.
func HasImageExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
