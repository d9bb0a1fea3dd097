package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/stitchdesk/stitchdesk/internal/logging"
)

// File is a stored multipart upload. Path points at the file on disk;
// Name is the generated filename without the directory.
type File struct {
	Field string
	Name  string
	Path  string
}

type Options struct {
	// Dir is the destination directory, created on demand.
	Dir string
	// Fields lists the accepted multipart field names. Presence is the
	// handler's concern; the middleware only validates and stores what
	// arrived.
	Fields []string
	// MaxSize is the per-file ceiling in bytes.
	MaxSize int64
}

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

const ctxKey = "uploadedFiles"

// Images validates and stores incoming image uploads before the handler
// runs. Rejected requests never reach the handler, and files already
// written for a rejected request are removed again.
func Images(opts Options) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			form, err := c.MultipartForm()
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Multipart form required"})
			}

			saved := map[string]File{}
			for _, field := range opts.Fields {
				headers := form.File[field]
				if len(headers) == 0 {
					continue
				}
				fh := headers[0]

				if !allowedTypes[fh.Header.Get("Content-Type")] {
					removeAll(saved)
					return c.JSON(http.StatusBadRequest, echo.Map{"error": "Only image files are allowed"})
				}
				if fh.Size > opts.MaxSize {
					removeAll(saved)
					return c.JSON(http.StatusBadRequest, echo.Map{"error": "File too large"})
				}

				f, err := save(fh, field, opts.Dir)
				if err != nil {
					removeAll(saved)
					logging.FromContext(c.Request().Context()).Error("upload save failed", "field", field, "error", err)
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
				}
				saved[field] = f
			}

			c.Set(ctxKey, saved)
			return next(c)
		}
	}
}

// FromContext returns the stored upload for a field, if one arrived.
func FromContext(c echo.Context, field string) (File, bool) {
	files, ok := c.Get(ctxKey).(map[string]File)
	if !ok {
		return File{}, false
	}
	f, ok := files[field]
	return f, ok
}

// Remove deletes a stored upload, used by handlers on their error paths.
// A zero File is a no-op.
func Remove(f File) {
	if f.Path == "" {
		return
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "error removing file %s: %v\n", f.Path, err)
	}
}

func removeAll(saved map[string]File) {
	for _, f := range saved {
		Remove(f)
	}
}

func save(fh *multipart.FileHeader, field, dir string) (File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return File{}, fmt.Errorf("create upload dir: %w", err)
	}

	name := fmt.Sprintf("%s-%d-%s%s", field, time.Now().UnixMilli(), gonanoid.Must(8), filepath.Ext(fh.Filename))
	path := filepath.Join(dir, name)

	src, err := fh.Open()
	if err != nil {
		return File{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return File{}, fmt.Errorf("create %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return File{}, fmt.Errorf("write %s: %w", path, err)
	}

	return File{Field: field, Name: name, Path: path}, nil
}
