// Package errors maps application errors to RFC 7807 problem responses.
//
// Handlers return plain Go errors. ErrorHandler.HandleError inspects them
// with errors.Is and errors.As and renders a ProblemDetails body through
// go-chi/render. Domain packages keep their own sentinel errors; the HTTP
// layer registers how each maps to a status and problem type:
//
//	h := errors.NewErrorHandler(logger, false,
//	    errors.Mapping{Target: dashboard.ErrUnknownDashboard, Status: 404, Type: errors.TypeNotFound},
//	)
//	h.HandleError(w, r, err)
package errors
