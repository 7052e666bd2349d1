package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kirillkom/doc-insight/internal/core/domain"
)

const userIDHeader = "X-User-Id"

// ownerFromRequest extracts the authenticated principal set by the auth layer
// in front of this service. The id is an opaque scope key here.
func ownerFromRequest(r *http.Request) (string, error) {
	ownerID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if ownerID == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "authenticate request",
			errors.New("missing "+userIDHeader+" header"))
	}
	return ownerID, nil
}

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError renders the machine-readable kind plus a safe message. The raw
// error chain is exposed only in dev mode.
func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	kind := domain.ErrorKind(err)

	if status >= 500 {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"kind", kind,
			"error", err,
		)
	}

	resp := errorResponse{
		Error: publicMessage(err, status),
		Kind:  kind,
	}
	if rt.options.DevMode {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

func publicMessage(err error, status int) string {
	if status >= 500 {
		return "internal error"
	}
	return err.Error()
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request body", err)
	}
	return nil
}
