package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"crate-vision/inventory"
	errs "crate-vision/pkg/errors"
)

// allowedExtensions is the upload allowlist. Anything else is rejected
// before the file touches the working store or the detector.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
}

// handleUpload runs the main path: save the image, invoke the detector,
// aggregate counts, enrich with prices, then answer with the annotated
// image as the body and the encoded counts in the Item-Counts header.
// Results are all-or-nothing: no partial counts are ever returned.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize)
	if err := r.ParseMultipartForm(s.config.MaxUploadSize); err != nil {
		s.writeError(w, errs.Wrap(errs.KindInvalidInput, "No file part", err))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, errs.Wrap(errs.KindInvalidInput, "No file part", err))
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.writeError(w, errs.E(errs.KindInvalidInput, "No selected file"))
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		s.writeError(w, errs.E(errs.KindInvalidInput, "Invalid file type"))
		return
	}

	imagePath, err := s.saveUpload(file, ext)
	if err != nil {
		s.writeError(w, internalError(err))
		return
	}

	ctx := r.Context()
	result, err := s.detector.Detect(ctx, imagePath)
	if err != nil {
		s.writeError(w, err)
		return
	}

	counts := s.normalizer.Aggregate(result.Detections)
	lines, err := inventory.Enrich(ctx, counts, s.store)
	if err != nil {
		s.writeError(w, internalError(err))
		return
	}

	encoded, err := inventory.EncodeLines(lines)
	if err != nil {
		s.writeError(w, internalError(err))
		return
	}

	annotated, err := os.ReadFile(result.AnnotatedPath)
	if err != nil {
		s.writeError(w, errs.Wrap(errs.KindProcessing, "error processing the image", err))
		return
	}

	w.Header().Set("Item-Counts", string(encoded))
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(annotated); err != nil {
		s.log.Error("failed to write annotated image", "error", err)
	}
}

// saveUpload persists the uploaded image under a collision-free name.
func (s *Server) saveUpload(file io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(s.config.UploadDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(s.config.UploadDir, uuid.New().String()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
