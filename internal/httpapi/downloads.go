package httpapi

import (
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/arawak/singora/internal/export"
)

func (s *Server) DownloadAll(w http.ResponseWriter, r *http.Request) {
	res, err := s.exports.All(r.Context())
	s.writeExport(w, r, res, err)
}

func (s *Server) DownloadByLabel(w http.ResponseWriter, r *http.Request, label LabelName) {
	res, err := s.exports.ByLabel(r.Context(), label)
	s.writeExport(w, r, res, err)
}

func (s *Server) DownloadByDate(w http.ResponseWriter, r *http.Request, date DatePath, params DownloadByDateParams) {
	res, err := s.exports.ByDate(r.Context(), date, deref(params.LabelName))
	s.writeExport(w, r, res, err)
}

func (s *Server) DownloadByLabelAndDate(w http.ResponseWriter, r *http.Request, label LabelName, date DatePath, params DownloadByLabelAndDateParams) {
	res, err := s.exports.ByLabelAndDate(r.Context(), export.LabelDateRequest{
		Label:   label,
		Date:    date,
		Format:  deref(params.Format),
		Page:    derefInt(params.Page, 1),
		PerPage: derefInt(params.PerPage, export.DefaultPerPage),
	})
	s.writeExport(w, r, res, err)
}

func (s *Server) DownloadByLabelAndDateRange(w http.ResponseWriter, r *http.Request, label LabelName, params DownloadByLabelAndDateRangeParams) {
	res, err := s.exports.ByLabelAndDateRange(r.Context(), export.DateRangeRequest{
		Label:          label,
		From:           deref(params.DateFrom),
		To:             deref(params.DateTo),
		Format:         deref(params.Format),
		OrganizeByDate: deref(params.OrganizeByDate),
	})
	s.writeExport(w, r, res, err)
}

func (s *Server) GetDownloadInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.exports.Info(r.Context())
	if err != nil {
		s.writeExportError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// writeExport sends a JSON body or streams a staged archive. The archive is
// released when this returns, after the body has been written or the client
// has gone away.
func (s *Server) writeExport(w http.ResponseWriter, r *http.Request, res *export.Result, err error) {
	if err != nil {
		s.writeExportError(w, r, err)
		return
	}
	if res.Download == nil {
		writeJSON(w, http.StatusOK, res.Body)
		return
	}

	d := res.Download
	defer func() {
		if err := d.Release(); err != nil {
			s.logger.Error("release export", "export_id", d.ID, "error", err)
		}
	}()

	f, err := d.Open()
	if err != nil {
		s.writeExportError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeExportError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	w.Header().Set(ExportIDHeader, d.ID)
	http.ServeContent(w, r, d.Filename, info.ModTime(), f)
}

func (s *Server) writeExportError(w http.ResponseWriter, r *http.Request, err error) {
	var e *export.Error
	if !errors.As(err, &e) {
		s.logger.Error("export failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal", "Internal server error", nil)
		return
	}
	switch {
	case errors.Is(e, export.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", e.Message, e.Details)
	case errors.Is(e, export.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", e.Message, e.Details)
	default:
		s.logger.Error("export failed", "error", err, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal", e.Message, nil)
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
