package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/clips-backend/pkg/errors"
	"github.com/angelmondragon/clips-backend/pkg/logger"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Body{Data: data})
}

// WriteError renders err as the error envelope. Untyped errors are classified
// first, so a raw constraint violation still answers with its proper status.
// Server-side failures are logged with their full chain; client errors are not.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.Classify(err)
	code := typed.Code()
	meta := pkgerrors.MetadataFor(code)

	apiErr := ErrorDetail{Code: string(code), Message: meta.PublicMessage}
	if code.ClientMessage() && typed.Message() != "" {
		apiErr.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}

	if logg != nil && meta.HTTPStatus >= http.StatusInternalServerError {
		logg.Error(logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "request.error", err)
	} else if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"error_code": code,
			"status":     meta.HTTPStatus,
			"error":      typed.Message(),
		}), "request.rejected")
	}

	writeJSON(w, meta.HTTPStatus, ErrorBody{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
