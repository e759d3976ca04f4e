// Package media renders thumbnails for tracked image files. Everything else
// about a file is opaque to this package; a file that does not decode as an
// image simply gets no thumbnail.
package media

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"

	"tagdex/internal/metrics"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const thumbSize = 256

// decodeMu serializes decode and encode process-wide; not every codec in the
// decode chain is re-entrant.
var decodeMu sync.Mutex

// Generator writes PNG thumbnails next to nothing in particular: the caller
// picks the destination directory per folder.
type Generator struct {
	enabled bool
}

// NewGenerator returns a thumbnail generator. With enabled false, Generate
// always reports no thumbnail, which tracking treats as normal.
func NewGenerator(enabled bool) *Generator {
	if enabled {
		log.Debug("thumbnail generator enabled")
	} else {
		log.Debug("thumbnail generator disabled")
	}
	return &Generator{enabled: enabled}
}

// Generate decodes imagePath, writes a PNG thumbnail into destDir and
// reports the source image's dimensions. ok is false when the file is not a
// decodable image or the thumbnail could not be written; neither is an
// error from the caller's point of view.
func (g *Generator) Generate(imagePath, destDir string) (thumbPath string, width, height int, ok bool) {
	if !g.enabled {
		return "", 0, 0, false
	}

	decodeMu.Lock()
	defer decodeMu.Unlock()

	img, err := openImage(imagePath)
	if err != nil {
		log.Debugf("not a decodable image: %s: %v", imagePath, err)
		metrics.ThumbnailsGenerated.WithLabelValues("skipped").Inc()
		return "", 0, 0, false
	}

	bounds := img.Bounds()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		log.Warnf("cannot create thumbnail dir %s: %v", destDir, err)
		metrics.ThumbnailsGenerated.WithLabelValues("skipped").Inc()
		return "", 0, 0, false
	}

	dest := filepath.Join(destDir, sanitizeName(filepath.Base(imagePath))+".png")
	thumb := imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
	if err := imaging.Save(thumb, dest); err != nil {
		log.Warnf("cannot write thumbnail %s: %v", dest, err)
		metrics.ThumbnailsGenerated.WithLabelValues("skipped").Inc()
		return "", 0, 0, false
	}

	metrics.ThumbnailsGenerated.WithLabelValues("ok").Inc()
	return dest, bounds.Dx(), bounds.Dy(), true
}

// openImage tries imaging's own decoders first (JPEG/PNG/GIF/TIFF/BMP with
// orientation handling), then falls back to image.Decode for the formats
// registered above.
func openImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}

	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, openErr
	}
	defer f.Close()

	img, _, decodeErr := image.Decode(f)
	if decodeErr != nil {
		return nil, err
	}
	return img, nil
}

// sanitizeName keeps thumbnail filenames portable: anything outside
// [A-Za-z0-9._-] becomes an underscore.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '_' || r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}
