package responses

import (
	"context"
	"encoding/json"
	"net/http"

	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
	"github.com/digikart/digikart-backend/pkg/logger"
)

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
	Details any            `json:"details,omitempty"`
}

// WriteSuccess writes a 200 envelope with the given payload.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

// WriteSuccessStatus writes a success envelope with an explicit status code.
func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Success: true, Data: data})
}

// WriteError maps err onto the HTTP error envelope. Internal messages never
// leak: the client sees only the public message for the code, plus details
// when the code allows them.
func WriteError(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unclassified error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"error_code": typed.Code(),
			"error_dump": pkgerrors.DumpError(err),
		})
		switch meta.HTTPStatus {
		case http.StatusInternalServerError, http.StatusServiceUnavailable:
			logg.Error(logCtx, "request failed", err)
		default:
			logg.Warn(logCtx, "request rejected")
		}
	}

	body := errorBody{
		Code:    typed.Code(),
		Message: meta.PublicMessage,
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	writeJSON(w, meta.HTTPStatus, errorEnvelope{Success: false, Error: body})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding failures past this point cannot change the status line.
	_ = json.NewEncoder(w).Encode(payload)
}
