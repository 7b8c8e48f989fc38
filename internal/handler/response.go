package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"thakii-backend/internal/middleware"
	"thakii-backend/internal/service/admin"
	"thakii-backend/internal/service/auth"
	"thakii-backend/pkg/errors"
	"thakii-backend/pkg/logger"
)

const maxBodyBytes = 64 << 10

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps err to an AppError and writes the error response to the client
func writeError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	appErr := toAppError(err)
	requestID := middleware.GetRequestID(r.Context())

	entry := log.WithFields(map[string]interface{}{
		"request_id": requestID,
		"path":       r.URL.Path,
		"type":       string(appErr.Type),
		"code":       appErr.Code,
	}).WithError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		entry.Error("Request error")
	} else {
		entry.Info("Request rejected")
	}

	writeJSON(w, appErr.StatusCode, errors.NewErrorResponse(appErr, requestID, time.Now()), log)
}

// toAppError translates service errors into client-facing errors. Messages
// come from the services' client-safe text only.
func toAppError(err error) *errors.AppError {
	var authErr *auth.Error
	if stderrors.As(err, &authErr) {
		reason := string(authErr.Reason())
		switch authErr.Kind {
		case auth.KindInsufficientPrivilege:
			return errors.NewAuthorizationError(authErr.Message()).WithCode(reason)
		case auth.KindAlreadySessionToken:
			return errors.NewValidationError(authErr.Message(), nil).WithCode(reason)
		default:
			return errors.NewAuthenticationError(authErr.Message()).WithCode(reason).WithInternal(err)
		}
	}

	var adminErr *admin.Error
	if stderrors.As(err, &adminErr) {
		code := string(adminErr.Kind)
		switch adminErr.Kind {
		case admin.KindAdminNotFound:
			return errors.NewNotFoundError(adminErr.Message).WithCode(code)
		case admin.KindAdminAlreadyExists:
			return errors.NewConflictError(adminErr.Message).WithCode(code)
		case admin.KindSuperAdminProtected:
			return errors.NewAuthorizationError(adminErr.Message).WithCode(code)
		default:
			return errors.NewValidationError(adminErr.Message, nil).WithCode(code)
		}
	}

	return errors.AsAppError(err)
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewValidationError("Request body must be valid JSON", map[string]interface{}{
			"reason": err.Error(),
		}).WithCode("InvalidBody")
	}
	return nil
}
