package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"nestling-tracker/internal/core/domain"
)

// ErrorObject represents a simplified JSON:API error object
type ErrorObject struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// ErrorResponse is the top-level JSON:API error response
type ErrorResponse struct {
	Errors []ErrorObject `json:"errors"`
}

// respondWithError sends a single JSON:API error response
func respondWithError(w http.ResponseWriter, statusCode int, title, detail string) {
	respondWithErrors(w, statusCode, []ErrorObject{
		{
			Status: http.StatusText(statusCode),
			Title:  title,
			Detail: detail,
		},
	})
}

// respondWithErrors sends multiple JSON:API errors
func respondWithErrors(w http.ResponseWriter, statusCode int, errors []ErrorObject) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Ensure status is set for all errors
	for i := range errors {
		if errors[i].Status == "" {
			errors[i].Status = http.StatusText(statusCode)
		}
	}

	response := ErrorResponse{
		Errors: errors,
	}

	json.NewEncoder(w).Encode(response)
}

// respondWithDomainError maps domain sentinel errors onto HTTP status
// codes. Not-found covers records of other families as well, so callers
// never learn whether a foreign ID exists.
func respondWithDomainError(w http.ResponseWriter, err error, resourceType, id string) {
	switch {
	case errors.Is(err, domain.ErrChildNotFound),
		errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrExportNotFound),
		errors.Is(err, domain.ErrScheduleNotFound):
		respondWithErrors(w, http.StatusNotFound, []ErrorObject{errorNotFound(resourceType, id)})

	case errors.Is(err, domain.ErrExportNotReady):
		respondWithError(w, http.StatusConflict, "Export Not Ready", "The export has not produced a document yet")

	case errors.Is(err, domain.ErrInvalidEventType),
		errors.Is(err, domain.ErrInvalidDiaperKind),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidSchedule),
		errors.Is(err, domain.ErrInvalidTimezone),
		errors.Is(err, domain.ErrInvalidChildName),
		errors.Is(err, domain.ErrInvalidBirthDate),
		errors.Is(err, domain.ErrInvalidTimeRange),
		errors.Is(err, domain.ErrFutureTimestamp),
		errors.Is(err, domain.ErrEventAlreadyEnded):
		respondWithError(w, http.StatusBadRequest, "Invalid Request", err.Error())

	default:
		respondWithErrors(w, http.StatusInternalServerError, []ErrorObject{errorInternalServer()})
	}
}

// Common error constructors for convenience

func errorNotFound(resourceType, id string) ErrorObject {
	return ErrorObject{
		Status: "404",
		Title:  resourceType + " Not Found",
		Detail: "The " + resourceType + " with ID '" + id + "' could not be found",
	}
}

func errorUnauthorized() ErrorObject {
	return ErrorObject{
		Status: "401",
		Title:  "Unauthorized",
		Detail: "The Authorization header is missing or the token is not valid",
	}
}

func errorInvalidJSON(err error) ErrorObject {
	detail := "The request body contains invalid JSON"
	if err != nil {
		detail = "Invalid JSON: " + err.Error()
	}
	return ErrorObject{
		Status: "400",
		Title:  "Invalid JSON",
		Detail: detail,
	}
}

func errorMissingFields() ErrorObject {
	return ErrorObject{
		Status: "400",
		Title:  "Missing Required Fields",
		Detail: "Missing Required Fields",
	}
}

func errorInvalidField(field, reason string) ErrorObject {
	return ErrorObject{
		Status: "400",
		Title:  "Invalid Field",
		Detail: "The field '" + field + "' is invalid: " + reason,
	}
}

func errorInternalServer() ErrorObject {
	return ErrorObject{
		Status: "500",
		Title:  "Internal Server Error",
		Detail: "An unexpected error occurred while processing your request",
	}
}
