package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/arawak/singora/internal/export"
	"github.com/arawak/singora/internal/media"
	"github.com/arawak/singora/internal/store"
)

const recentDates = 30

// multipartMemory bounds how much of an upload is held in memory before
// mime/multipart spills to disk.
const multipartMemory = 32 << 20

func (s *Server) UploadImage(w http.ResponseWriter, r *http.Request) {
	// base64 payloads are a third larger than the decoded image
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*4/3+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "File too large. Maximum size is 16MB", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "failed to parse form", map[string]any{"error": err.Error()})
		return
	}

	file, header, fileErr := r.FormFile("image")
	if fileErr == nil {
		defer file.Close()
	}
	_, hasData := r.PostForm["image_data"]
	if fileErr != nil && !hasData {
		writeError(w, http.StatusBadRequest, "bad_request", "No image provided", nil)
		return
	}
	if _, ok := r.PostForm["label_name"]; !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "Label name is required", nil)
		return
	}
	label := store.NormalizeLabel(r.PostFormValue("label_name"))
	if label == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "Label name cannot be empty", nil)
		return
	}

	var (
		data []byte
		info *media.Info
		err  error
	)
	if fileErr == nil {
		if header.Filename == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "No file selected", nil)
			return
		}
		data, info, err = s.validator.ReadFile(file, header.Filename)
	} else {
		data, info, err = s.validator.ReadBase64(r.PostFormValue("image_data"))
	}
	if err != nil {
		s.writeMediaError(w, err)
		return
	}

	img, err := s.images.CreateImage(r.Context(), store.ImageCreate{Data: data, LabelName: label})
	if err != nil {
		if errors.Is(err, store.ErrInvalidLabel) {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
			return
		}
		s.logger.Error("persist image", "error", err, "label", label)
		writeError(w, http.StatusInternalServerError, "internal", "Database error occurred", nil)
		return
	}

	s.logger.Info("image uploaded", "id", img.ID, "label", img.LabelName, "format", info.Format, "bytes", info.Bytes)
	writeJSON(w, http.StatusCreated, UploadResponse{Message: "Image uploaded successfully", Data: toImageMetadata(img)})
}

func (s *Server) writeMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "File too large", nil)
	case errors.Is(err, media.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "bad_request", "File type not allowed", nil)
	case errors.Is(err, media.ErrInvalidBase64):
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid base64 image data", nil)
	case errors.Is(err, media.ErrInvalidImage):
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid image data", nil)
	default:
		s.logger.Error("read upload", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "Upload failed", nil)
	}
}

func (s *Server) GetImage(w http.ResponseWriter, r *http.Request, id ImageId) {
	img, err := s.images.GetImage(r.Context(), id, false)
	if err != nil {
		s.writeLookupError(w, err, "get image", id)
		return
	}
	writeJSON(w, http.StatusOK, toImageMetadata(img))
}

func (s *Server) GetImageRaw(w http.ResponseWriter, r *http.Request, id ImageId) {
	img, err := s.images.GetImage(r.Context(), id, true)
	if err != nil {
		s.writeLookupError(w, err, "get image payload", id)
		return
	}
	w.Header().Set("Content-Type", media.DetectMime(img.Data))
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

func (s *Server) DeleteImage(w http.ResponseWriter, r *http.Request, id ImageId) {
	if err := s.images.DeleteImage(r.Context(), id); err != nil {
		s.writeLookupError(w, err, "delete image", id)
		return
	}
	s.logger.Info("image deleted", "id", id)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Image deleted successfully"})
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error, op string, id int64) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Image not found", nil)
		return
	}
	s.logger.Error(op, "error", err, "id", id)
	writeError(w, http.StatusInternalServerError, "internal", "Database error occurred", nil)
}

func (s *Server) ListLabels(w http.ResponseWriter, r *http.Request) {
	stats, err := s.images.LabelStats(r.Context())
	if err != nil {
		s.logger.Error("list labels", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "Failed to retrieve labels", nil)
		return
	}
	resp := LabelListResponse{Data: make([]LabelCount, 0, len(stats))}
	for _, st := range stats {
		resp.Data = append(resp.Data, LabelCount{LabelName: st.LabelName, Count: st.Count})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fail := func(err error) {
		s.logger.Error("stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "Failed to retrieve statistics", nil)
	}

	total, err := s.images.CountImages(ctx, store.Filter{})
	if err != nil {
		fail(err)
		return
	}
	labels, err := s.images.LabelStats(ctx)
	if err != nil {
		fail(err)
		return
	}
	dates, err := s.images.DateCounts(ctx, recentDates)
	if err != nil {
		fail(err)
		return
	}

	resp := StatsResponse{TotalImages: total, TotalLabels: len(labels), ImagesByDate: make([]DateCount, 0, len(dates))}
	for _, d := range dates {
		resp.ImagesByDate = append(resp.ImagesByDate, DateCount{Date: d.Date.Format(export.DateLayout), Count: d.Count})
	}
	writeJSON(w, http.StatusOK, resp)
}

func toImageMetadata(img *store.Image) ImageMetadata {
	return ImageMetadata{
		Id:        img.ID,
		LabelName: img.LabelName,
		Date:      img.Date.Format(export.DateLayout),
		Timestamp: img.Timestamp.Format(export.TimestampLayout),
	}
}
