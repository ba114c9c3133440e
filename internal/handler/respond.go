package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aTrapDeer/portfolio-api/internal/payload"
	"github.com/aTrapDeer/portfolio-api/internal/store"
)

// maxBodyBytes bounds request bodies; avatars and images arrive base64 encoded.
const maxBodyBytes = 20 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeError maps err onto a response. entity names the resource in
// not-found messages, e.g. "Project not found".
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, entity string, err error) {
	var (
		verr   *payload.ValidationError
		maxErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr.Fields)
	case store.IsNotFound(err):
		writeMessage(w, http.StatusNotFound, entity+" not found")
	case errors.As(err, &maxErr):
		writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
	default:
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

// pathID reads the {id} URL parameter. Anything that is not a positive
// integer cannot name a row, so it is reported as not found.
func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 0)
	if err != nil || id == 0 {
		return 0, store.ErrNotFound
	}
	return uint(id), nil
}
