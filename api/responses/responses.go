// Package responses renders the flat wire objects of the store contract:
// every reply is a single JSON object whose status field the client
// branches on.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
	"github.com/anvargas/tiendaluz-core/pkg/logger"
)

// Wire is the single response shape of the sync endpoint.
type Wire struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// WriteSuccess replies {"status":"success"} with an optional payload.
func WriteSuccess(w http.ResponseWriter, payload string) {
	writeJSON(w, http.StatusOK, Wire{Status: "success", Payload: payload})
}

// WriteEmpty replies {} for a pull against an empty store.
func WriteEmpty(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, Wire{})
}

// WriteError maps a typed error to the wire: busy gets its own status so
// clients can retry, everything else is status error with a safe message.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	if logg != nil {
		logg.Error(logg.WithField(ctx, "error_code", string(typed.Code())), "request failed", err)
	}

	if typed.Code() == pkgerrors.CodeBusy {
		writeJSON(w, meta.HTTPStatus, Wire{Status: "busy"})
		return
	}

	msg := meta.PublicMessage
	switch typed.Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeForbidden, pkgerrors.CodeNotFound, pkgerrors.CodeConflict:
		if m := typed.Message(); m != "" {
			msg = m
		}
	}
	writeJSON(w, meta.HTTPStatus, Wire{Status: "error", Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, body Wire) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
