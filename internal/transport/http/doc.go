// Package http implements the REST handlers of the dashboard service.
//
// Handlers stay thin: they parse and validate the request, call the dataset
// or health service and render the result with go-chi/render. Every failure
// goes through the shared ErrorHandler and leaves as an RFC 7807 problem;
// RegisterErrorMappings binds the domain sentinel errors to problem types.
//
// Selections are passed as query parameters:
//
//	year=2023&year=2024             restrict the dashboard's year column
//	f.MBO+naam+instelling=Zone.college  restrict any other column
//	p.box_x=niveau                  set a render parameter
//
// A column given without any non-empty value selects no rows.
package http
