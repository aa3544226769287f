package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Upload an image with a label
	// (POST /api/v1/images)
	UploadImage(w http.ResponseWriter, r *http.Request)
	// Image metadata
	// (GET /api/v1/images/{id})
	GetImage(w http.ResponseWriter, r *http.Request, id ImageId)
	// Image payload
	// (GET /api/v1/images/{id}/raw)
	GetImageRaw(w http.ResponseWriter, r *http.Request, id ImageId)
	// Delete an image
	// (DELETE /api/v1/images/{id})
	DeleteImage(w http.ResponseWriter, r *http.Request, id ImageId)
	// Labels with image counts
	// (GET /api/v1/labels)
	ListLabels(w http.ResponseWriter, r *http.Request)
	// Totals and recent per-date counts
	// (GET /api/v1/stats)
	GetStats(w http.ResponseWriter, r *http.Request)
	// Every label as a nested archive
	// (GET /api/v1/images/download/all)
	DownloadAll(w http.ResponseWriter, r *http.Request)
	// One label as a flat archive
	// (GET /api/v1/images/download/label/{label})
	DownloadByLabel(w http.ResponseWriter, r *http.Request, label LabelName)
	// One date, organized by label
	// (GET /api/v1/images/download/date/{date})
	DownloadByDate(w http.ResponseWriter, r *http.Request, date DatePath, params DownloadByDateParams)
	// One label on one date, archive or paginated JSON
	// (GET /api/v1/images/download/label/{label}/date/{date})
	DownloadByLabelAndDate(w http.ResponseWriter, r *http.Request, label LabelName, date DatePath, params DownloadByLabelAndDateParams)
	// One label over a date range, archive or JSON grouped by date
	// (GET /api/v1/images/download/label/{label}/date-range)
	DownloadByLabelAndDateRange(w http.ResponseWriter, r *http.Request, label LabelName, params DownloadByLabelAndDateRangeParams)
	// Download statistics and endpoint map
	// (GET /api/v1/images/download/info)
	GetDownloadInfo(w http.ResponseWriter, r *http.Request)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareFunc func(http.Handler) http.Handler

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.HandlerFunc) {
	var handler http.Handler = h
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

func (siw *ServerInterfaceWrapper) bindImageID(w http.ResponseWriter, r *http.Request) (ImageId, bool) {
	var id ImageId
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return 0, false
	}
	return id, true
}

func (siw *ServerInterfaceWrapper) bindPathString(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: name, Err: err})
		return "", false
	}
	return v, true
}

func (siw *ServerInterfaceWrapper) bindQuery(w http.ResponseWriter, r *http.Request, name string, dest interface{}) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: name, Err: err})
		return false
	}
	return true
}

// UploadImage operation middleware
func (siw *ServerInterfaceWrapper) UploadImage(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.UploadImage)
}

// GetImage operation middleware
func (siw *ServerInterfaceWrapper) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindImageID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetImage(w, r, id)
	})
}

// GetImageRaw operation middleware
func (siw *ServerInterfaceWrapper) GetImageRaw(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindImageID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetImageRaw(w, r, id)
	})
}

// DeleteImage operation middleware
func (siw *ServerInterfaceWrapper) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindImageID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DeleteImage(w, r, id)
	})
}

// ListLabels operation middleware
func (siw *ServerInterfaceWrapper) ListLabels(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.ListLabels)
}

// GetStats operation middleware
func (siw *ServerInterfaceWrapper) GetStats(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetStats)
}

// DownloadAll operation middleware
func (siw *ServerInterfaceWrapper) DownloadAll(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.DownloadAll)
}

// DownloadByLabel operation middleware
func (siw *ServerInterfaceWrapper) DownloadByLabel(w http.ResponseWriter, r *http.Request) {
	label, ok := siw.bindPathString(w, r, "label")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DownloadByLabel(w, r, label)
	})
}

// DownloadByDate operation middleware
func (siw *ServerInterfaceWrapper) DownloadByDate(w http.ResponseWriter, r *http.Request) {
	date, ok := siw.bindPathString(w, r, "date")
	if !ok {
		return
	}
	var params DownloadByDateParams
	if !siw.bindQuery(w, r, "label_name", &params.LabelName) {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DownloadByDate(w, r, date, params)
	})
}

// DownloadByLabelAndDate operation middleware
func (siw *ServerInterfaceWrapper) DownloadByLabelAndDate(w http.ResponseWriter, r *http.Request) {
	label, ok := siw.bindPathString(w, r, "label")
	if !ok {
		return
	}
	date, ok := siw.bindPathString(w, r, "date")
	if !ok {
		return
	}
	var params DownloadByLabelAndDateParams
	if !siw.bindQuery(w, r, "format", &params.Format) ||
		!siw.bindQuery(w, r, "page", &params.Page) ||
		!siw.bindQuery(w, r, "per_page", &params.PerPage) {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DownloadByLabelAndDate(w, r, label, date, params)
	})
}

// DownloadByLabelAndDateRange operation middleware
func (siw *ServerInterfaceWrapper) DownloadByLabelAndDateRange(w http.ResponseWriter, r *http.Request) {
	label, ok := siw.bindPathString(w, r, "label")
	if !ok {
		return
	}
	var params DownloadByLabelAndDateRangeParams
	if !siw.bindQuery(w, r, "date_from", &params.DateFrom) ||
		!siw.bindQuery(w, r, "date_to", &params.DateTo) ||
		!siw.bindQuery(w, r, "format", &params.Format) ||
		!siw.bindQuery(w, r, "organize_by_date", &params.OrganizeByDate) {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DownloadByLabelAndDateRange(w, r, label, params)
	})
}

// GetDownloadInfo operation middleware
func (siw *ServerInterfaceWrapper) GetDownloadInfo(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetDownloadInfo)
}

type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}
