package http

import (
	"net/http"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	apierrors "github.com/PauloMoekotte/Herkomst-ROC/internal/errors"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/exporter"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/query"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/services"
)

// ErrorMappings binds domain errors to problem types
func ErrorMappings() []apierrors.Mapping {
	return []apierrors.Mapping{
		{Target: dashboard.ErrUnknownDashboard, Status: http.StatusNotFound, Type: apierrors.TypeNotFound, Title: "Dashboard Not Found"},
		{Target: services.ErrDatasetNotFound, Status: http.StatusNotFound, Type: apierrors.TypeDataNotFound, Title: "Dataset Not Found"},
		{Target: dashboard.ErrUnknownChart, Status: http.StatusNotFound, Type: apierrors.TypeNotFound, Title: "Chart Not Found"},
		{Target: services.ErrExportUnavailable, Status: http.StatusNotFound, Type: apierrors.TypeNotFound, Title: "Export Not Available"},
		{Target: dashboard.ErrInvalidSelection, Status: http.StatusBadRequest, Type: apierrors.TypeInvalidSelection, Title: "Invalid Selection"},
		{Target: dashboard.ErrInvalidParameter, Status: http.StatusBadRequest, Type: apierrors.TypeInvalidSelection, Title: "Invalid Parameter"},
		{Target: query.ErrUnknownColumn, Status: http.StatusBadRequest, Type: apierrors.TypeInvalidSelection, Title: "Unknown Column"},
		{Target: services.ErrChartUnavailable, Status: http.StatusUnprocessableEntity, Type: apierrors.TypeNoData, Title: "No Chart Data"},
		{Target: services.ErrTooManyFiles, Status: http.StatusBadRequest, Type: apierrors.TypeValidation, Title: "Too Many Files"},
		{Target: exporter.ErrUnsupportedFormat, Status: http.StatusBadRequest, Type: apierrors.TypeValidation, Title: "Unsupported Export Format"},
	}
}

// RegisterErrorMappings adds the domain mappings to h
func RegisterErrorMappings(h *apierrors.ErrorHandler) {
	h.Register(ErrorMappings()...)
}
