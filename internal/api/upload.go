package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/BTreeMap/FarmGenius/internal/backend"
	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/gin-gonic/gin"
)

// uploadField is the multipart field carrying the crop photo.
const uploadField = "image"

// saveUpload stores the request's photo under the upload directory.
func (s *Server) saveUpload(c *gin.Context) (backend.Image, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUpload)
	fh, err := c.FormFile(uploadField)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig), strings.Contains(err.Error(), "request body too large"):
			return backend.Image{}, models.ErrImageTooLarge
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return backend.Image{}, models.ErrNoImage
		}
		return backend.Image{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if fh.Filename == "" {
		return backend.Image{}, models.ErrNoImage
	}
	if fh.Size > s.opts.MaxUpload {
		return backend.Image{}, models.ErrImageTooLarge
	}

	name := secureFilename(fh.Filename)
	dst := filepath.Join(s.opts.UploadDir, name)
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		return backend.Image{}, fmt.Errorf("failed to save upload %s: %w", name, err)
	}
	slog.Info("Server.saveUpload: saved image", "file", name, "size", fh.Size)
	return backend.Image{
		Filename:    name,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		URL:         "/uploads/" + name,
	}, nil
}

// secureFilename keeps only ASCII letters, digits, dot, dash and underscore,
// turns whitespace into underscores and strips leading dots.
func secureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), "._")
	if out == "" {
		return "upload"
	}
	return out
}

// analyzeHandler is the standalone detector endpoint: upload a photo, get the
// diagnosis back as text.
func (s *Server) analyzeHandler(c *gin.Context) {
	img, err := s.saveUpload(c)
	switch {
	case errors.Is(err, models.ErrNoImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded"})
		return
	case errors.Is(err, models.ErrImageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": models.NoticeFor(err).Message})
		return
	case err != nil:
		slog.Error("Server.analyzeHandler: upload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to save image"})
		return
	}

	d, err := s.pages.Deps().Classifier.Classify(c.Request.Context(), img)
	if err != nil {
		slog.Error("Server.analyzeHandler: classification failed", "file", img.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"result":    formatDiagnosis(d),
		"diagnosis": d,
		"image_url": img.URL,
	})
}

func formatDiagnosis(d backend.Diagnosis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Disease: %s (%s)\nConfidence: %d%%\n", d.Disease, d.Scientific, d.Confidence)
	for _, sec := range []struct {
		title string
		items []string
	}{
		{"Symptoms", d.Symptoms},
		{"Treatment", d.Treatment},
		{"Prevention", d.Prevention},
	} {
		fmt.Fprintf(&b, "\n%s:\n", sec.title)
		for _, it := range sec.items {
			fmt.Fprintf(&b, "- %s\n", it)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
