package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	apierrors "github.com/PauloMoekotte/Herkomst-ROC/internal/errors"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/exporter"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/ingest"
	mw "github.com/PauloMoekotte/Herkomst-ROC/internal/middleware"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/services"
)

// UploadField is the multipart field carrying the data files
const UploadField = "files"

// multipartMemory is kept in memory before parts spill to temp files
const multipartMemory = 8 << 20

// DashboardOptions bounds uploads
type DashboardOptions struct {
	MaxUploadBytes int64
	MaxFiles       int
}

// uploadFile is the validated metadata of one uploaded part
type uploadFile struct {
	Name string `json:"name" validate:"required,filename,datafile"`
	Size int64  `json:"size" validate:"gte=0"`
}

// DashboardHandler serves dashboards, datasets, views, exports and charts
type DashboardHandler struct {
	service      DatasetServiceInterface
	validator    *mw.Validator
	errorHandler *apierrors.ErrorHandler
	opts         DashboardOptions
	logger       *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DatasetServiceInterface, opts DashboardOptions, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    mw.NewValidator(),
		errorHandler: errorHandler,
		opts:         opts,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(render.SetContentType(render.ContentTypeJSON)).Get("/", h.ListDashboards)

	r.Route("/{dashboard}", func(r chi.Router) {
		r.Use(h.DashboardCtx)
		r.With(render.SetContentType(render.ContentTypeJSON)).Get("/", h.GetDashboard)
		r.With(mw.ContentTypeValidator(h.errorHandler, "multipart/form-data")).Post("/datasets", h.Upload)

		r.Route("/datasets/{id}", func(r chi.Router) {
			r.Use(h.DatasetCtx)
			r.Get("/", h.GetDataset)
			r.Delete("/", h.DeleteDataset)
			r.Get("/view", h.GetView)
			r.Get("/export.{format}", h.Export)
			r.Get("/charts/{chart}.png", h.Chart)
		})
	})

	return r
}

// DashboardCtx checks the dashboard exists before any sub-route runs
func (h *DashboardHandler) DashboardCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.service.Dashboard(chi.URLParam(r, "dashboard")); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DatasetCtx validates the dataset id parameter
func (h *DashboardHandler) DatasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id != dashboard.DefaultDatasetID {
			if err := h.validator.Var(id, "required,hexadecimal,len=32"); err != nil {
				h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "id must be a dataset id or \"default\""))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ListDashboards handles GET /api/dashboards
func (h *DashboardHandler) ListDashboards(w http.ResponseWriter, r *http.Request) {
	dashboards := h.service.Dashboards()
	render.JSON(w, r, map[string]interface{}{
		"dashboards": dashboards,
		"count":      len(dashboards),
	})
}

// GetDashboard handles GET /api/dashboards/{dashboard}
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "dashboard")
	for _, d := range h.service.Dashboards() {
		if d.Name == name {
			render.JSON(w, r, d)
			return
		}
	}
	h.errorHandler.HandleError(w, r, fmt.Errorf("%w: %s", dashboard.ErrUnknownDashboard, name))
}

// Upload handles POST /api/dashboards/{dashboard}/datasets
func (h *DashboardHandler) Upload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "dashboard")
	if h.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.errorHandler.HandleError(w, r, asUploadError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File[UploadField]
	if h.opts.MaxFiles > 0 && len(parts) > h.opts.MaxFiles {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(UploadField,
			fmt.Sprintf("at most %d files can be uploaded at once", h.opts.MaxFiles)))
		return
	}

	sources, err := h.readParts(parts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "upload received",
		slog.String("dashboard", name),
		slog.Int("files", len(sources)),
		slog.String("request_id", middleware.GetReqID(r.Context())))

	summary, err := h.service.Load(r.Context(), name, sources)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/%s", r.URL.Path, summary.ID))
	if summary.Status == services.StatusOK && !summary.Cached {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, summary)
}

func (h *DashboardHandler) readParts(parts []*multipart.FileHeader) ([]ingest.Source, error) {
	sources := make([]ingest.Source, 0, len(parts))
	for _, fh := range parts {
		if err := h.validator.ValidateStruct(uploadFile{Name: fh.Filename, Size: fh.Size}); err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, apierrors.InvalidRequestWithError(err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, apierrors.InvalidRequestWithError(err)
		}
		sources = append(sources, ingest.Source{Name: fh.Filename, Data: data})
	}
	return sources, nil
}

// asUploadError keeps size violations recognizable and wraps everything else as a bad request
func asUploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return apierrors.InvalidRequestWithError(err)
}

// GetDataset handles GET /api/dashboards/{dashboard}/datasets/{id}
func (h *DashboardHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), chi.URLParam(r, "dashboard"), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// DeleteDataset handles DELETE /api/dashboards/{dashboard}/datasets/{id}
func (h *DashboardHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context(), chi.URLParam(r, "dashboard"), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetView handles GET /api/dashboards/{dashboard}/datasets/{id}/view
func (h *DashboardHandler) GetView(w http.ResponseWriter, r *http.Request) {
	req, err := h.renderRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	view, err := h.service.View(r.Context(), chi.URLParam(r, "dashboard"), chi.URLParam(r, "id"), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// Export handles GET /api/dashboards/{dashboard}/datasets/{id}/export.{format}
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := exporter.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	req, err := h.renderRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	out, err := h.service.Export(r.Context(), chi.URLParam(r, "dashboard"), chi.URLParam(r, "id"), req, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.Header().Set("X-Row-Count", strconv.Itoa(out.Rows))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Data)
}

// Chart handles GET /api/dashboards/{dashboard}/datasets/{id}/charts/{chart}.png
func (h *DashboardHandler) Chart(w http.ResponseWriter, r *http.Request) {
	req, err := h.renderRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	png, err := h.service.Chart(r.Context(), chi.URLParam(r, "dashboard"), chi.URLParam(r, "id"), req, chi.URLParam(r, "chart"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// renderRequest parses the selection from the query string and validates it
func (h *DashboardHandler) renderRequest(r *http.Request) (dashboard.Request, error) {
	d, err := h.service.Dashboard(chi.URLParam(r, "dashboard"))
	if err != nil {
		return dashboard.Request{}, err
	}
	req := dashboard.RequestFromQuery(d, r.URL.Query())
	if err := h.validator.ValidateStruct(req); err != nil {
		return dashboard.Request{}, err
	}
	return req, nil
}
