package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/DoyleJ11/cs-match-backend/internal/apierr"
	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/pkg/types"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(code, message string) types.ErrorResponse {
	return types.ErrorResponse{Code: code, Message: message}
}

// writeError maps err onto a status and error code. Unknown errors are
// logged and answered with a generic message.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, ok := apierr.Classify(err)
	if ok {
		writeJSON(w, status, errorBody(code, err.Error()))
		return
	}
	a.log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeJSON(w, status, errorBody(code, apierr.InternalMessage))
}

// decode reads a JSON body of at most maxBodyBytes. Going over the limit
// also tells the server to close the connection.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: body exceeds %d bytes", engine.ErrValidation, tooLarge.Limit)
		}
		return fmt.Errorf("%w: bad json: %v", engine.ErrValidation, err)
	}
	return nil
}
