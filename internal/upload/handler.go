package upload

import (
	"context"
	"errors"
	"image"
	_ "image/gif"  // gif dimensions
	_ "image/jpeg" // jpeg dimensions
	_ "image/png"  // png dimensions
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	_ "golang.org/x/image/webp" // WebP decode support

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/httputil"
)

// DefaultMaxBytes is the upload limit when none is configured.
const DefaultMaxBytes = 10 << 20

// UploadedFile describes a stored upload. Handlers behind Middleware read
// it with FromContext.
type UploadedFile struct {
	Field        string `json:"field"`
	OriginalName string `json:"originalName"`
	Filename     string `json:"filename"`
	Category     string `json:"category"`
	MIMEType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

type ctxKey struct{}

// FromContext returns the file stored by Middleware.
func FromContext(ctx context.Context) (*UploadedFile, bool) {
	f, ok := ctx.Value(ctxKey{}).(*UploadedFile)
	return f, ok
}

// Middleware parses a single multipart file from field, validates its MIME
// type, stores it under the destination of the route's mount path and
// passes the result on in the request context.
func Middleware(store Store, field string, maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			if err := r.ParseMultipartForm(maxBytes); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
					httputil.Error(w, http.StatusRequestEntityTooLarge, "File too large")
					return
				}
				httputil.BadRequest(w, "Failed to parse form: "+err.Error())
				return
			}
			file, header, err := r.FormFile(field)
			if err != nil {
				httputil.BadRequest(w, "No file provided in field "+field)
				return
			}
			defer file.Close()

			mime := header.Header.Get("Content-Type")
			if err := ValidateMIME(mime); err != nil {
				httputil.BadRequest(w, err.Error())
				return
			}

			dest := Resolve(MountPath(r))
			up := &UploadedFile{
				Field:        field,
				OriginalName: header.Filename,
				Filename:     NewFilename(dest.Prefix, header.Filename),
				Category:     dest.Category,
				MIMEType:     mime,
				Size:         header.Size,
			}
			if isImage(mime) {
				if cfg, _, err := image.DecodeConfig(file); err == nil {
					up.Width, up.Height = cfg.Width, cfg.Height
				}
				if _, err := file.Seek(0, io.SeekStart); err != nil {
					httputil.InternalError(w, err)
					return
				}
			}

			url, err := store.Save(r.Context(), up.Category, up.Filename, file, up.Size, mime)
			if err != nil {
				httputil.InternalError(w, err)
				return
			}
			up.URL = url
			log.Printf("[Upload] stored %s/%s via %s (%d bytes)", up.Category, up.Filename, store.Name(), up.Size)

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, up)))
		})
	}
}

// MountPath returns the route prefix an upload endpoint is registered
// under: the matched chi pattern, or the URL path, minus its last segment.
func MountPath(r *http.Request) string {
	p := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			p = pattern
		}
	}
	p = strings.TrimSuffix(p, "/")
	return path.Dir(p)
}

// Respond is the default handler behind Middleware.
func Respond(w http.ResponseWriter, r *http.Request) {
	up, ok := FromContext(r.Context())
	if !ok {
		httputil.BadRequest(w, "No file uploaded")
		return
	}
	httputil.Created(w, "File uploaded successfully", up)
}
