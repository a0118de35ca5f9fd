package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/MasterOfBinary/batchlist/batch"
	batchsync "github.com/MasterOfBinary/batchlist/sync"
)

type batchResponse struct {
	Key   string `json:"key"`
	Items []Item `json:"items"`
}

type stateResponse struct {
	Name    string          `json:"name"`
	Status  string          `json:"status"`
	Error   string          `json:"error,omitempty"`
	Epoch   uint64          `json:"epoch"`
	Fetches int             `json:"fetches"`
	Batches []batchResponse `json:"batches"`
}

// RefreshRequest is the body of a refresh request. Without keys every loaded
// batch is refreshed.
type RefreshRequest struct {
	Keys   []string `json:"keys,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

type refreshResponse struct {
	Batches []batchResponse `json:"batches"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toBatches(batches []batch.Batch[string, []Item]) []batchResponse {
	out := make([]batchResponse, len(batches))
	for i, b := range batches {
		out[i] = batchResponse{Key: b.Key, Items: b.Data}
	}
	return out
}

func toState(name string, state batch.State[string, []Item]) stateResponse {
	resp := stateResponse{
		Name:    name,
		Status:  state.Status.String(),
		Epoch:   state.Epoch(),
		Fetches: state.Fetches(),
		Batches: toBatches(state.Batches),
	}
	switch {
	case state.Status.Err != nil:
		resp.Error = state.Status.Err.Error()
	case state.Status.LastResult.Err != nil:
		resp.Error = state.Status.LastResult.Err.Error()
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps an error of a list operation to an HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, batchsync.ErrCannotLoadMore),
		errors.Is(err, batchsync.ErrReloaded),
		errors.Is(err, batchsync.ErrReloadActive):
		return http.StatusConflict
	case errors.Is(err, batch.ErrTooManyUpdates):
		return http.StatusTooManyRequests
	case errors.Is(err, batchsync.ErrClosed),
		errors.Is(err, batchsync.ErrSourceStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("Request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	l, err := s.lookup(name, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if l == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "list " + name + " is not loaded"})
		return
	}
	writeJSON(w, http.StatusOK, toState(name, l.State()))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	l, err := s.lookup(name, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	state, err := l.Reload(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toState(name, state))
}

func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	l, err := s.lookup(name, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if l == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "list " + name + " is not loaded"})
		return
	}

	state, err := l.LoadMore(r.Context(), nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toState(name, state))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req RefreshRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
	}

	l, err := s.lookup(name, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if l == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "list " + name + " is not loaded"})
		return
	}

	keys := req.Keys
	if len(keys) == 0 {
		keys = l.State().Keys()
	}
	if len(keys) == 0 {
		writeJSON(w, http.StatusOK, refreshResponse{Batches: []batchResponse{}})
		return
	}

	result, err := l.Update(r.Context(), keys, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Batches: toBatches(result.Batches)})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	l, err := s.lookup(name, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if l == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "list " + name + " is not loaded"})
		return
	}

	if err := l.Reset(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
