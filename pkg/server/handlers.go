package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/volvulus/untwist/pkg/buildinfo"
	"github.com/volvulus/untwist/pkg/dump"
	"github.com/volvulus/untwist/pkg/errors"
	uio "github.com/volvulus/untwist/pkg/io"
	"github.com/volvulus/untwist/pkg/pipeline"
	"github.com/volvulus/untwist/pkg/render/nodelink"
	"github.com/volvulus/untwist/pkg/storage"
)

// SnapshotHeader carries the archived snapshot id of a successful load.
const SnapshotHeader = "X-Snapshot-ID"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": buildinfo.Version,
		"busy":    s.loader.Busy(),
	})
}

// handleLoad runs the pipeline over the request body.
//
// Query parameters: source names the dump in the archive (default
// "upload"); refresh=true skips the result cache.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			writeOutcome(w, tooLarge(s.opts.MaxBytes), http.StatusRequestEntityTooLarge)
			return
		}
		out := pipeline.Failed(uuid.NewString(), errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body"))
		writeOutcome(w, out, http.StatusBadRequest)
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "upload"
	}
	opts := s.opts
	opts.Refresh = r.URL.Query().Get("refresh") == "true"

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, snap := s.Load(ctx, raw, source, opts)
	if snap != nil {
		w.Header().Set(SnapshotHeader, snap.ID)
	}
	writeOutcome(w, out, statusFor(out))
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latest(w, r)
	if !ok {
		return
	}
	w.Header().Set(SnapshotHeader, snap.ID)
	writeJSON(w, http.StatusOK, snap.Outcome())
}

// handleArtifact renders the latest graph. Query parameters: detailed=true
// adds attributes to labels; rankdir=LR lays the graph out left to right.
func (s *Server) handleArtifact(format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := s.latest(w, r)
		if !ok {
			return
		}
		opts := pipeline.RenderOptions{Detailed: r.URL.Query().Get("detailed") == "true"}
		switch rd := r.URL.Query().Get("rankdir"); rd {
		case "", nodelink.RankTopBottom, nodelink.RankLeftRight:
			opts.RankDir = rd
		default:
			writeError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidInput, "rankdir must be TB or LR"))
			return
		}

		data, err := s.loader.Runner().Render(r.Context(), snap.Graph, format, opts)
		if err != nil {
			s.logger.Error("render failed", "format", format, "snapshot", snap.ID, "error", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set(SnapshotHeader, snap.ID)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	list, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": list})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateSnapshotID(id); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snap, err := s.store.Get(r.Context(), id)
	if stderrors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, errors.New(errors.ErrCodeNotFound, "snapshot %s not found", id))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// latest returns the newest snapshot, writing a 404 when there is none.
func (s *Server) latest(w http.ResponseWriter, r *http.Request) (*storage.Snapshot, bool) {
	snap, err := s.store.Latest(r.Context())
	if stderrors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, errors.New(errors.ErrCodeNotFound, "no graph loaded"))
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return snap, true
}

// statusFor maps an outcome to its HTTP status.
func statusFor(out *pipeline.Outcome) int {
	if out.OK() {
		return http.StatusOK
	}
	switch out.Failure.Kind {
	case errors.ErrCodeDecode, errors.ErrCodeValidationFatal:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeBusy:
		return http.StatusConflict
	case errors.ErrCodeCanceled:
		return http.StatusServiceUnavailable
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func errTooLarge(limit int64) error {
	return errors.Wrap(errors.ErrCodeDecode, dump.ErrTooLarge, "dump is larger than %d bytes", limit)
}

func writeOutcome(w http.ResponseWriter, out *pipeline.Outcome, status int) {
	writeJSON(w, status, out)
}

// writeError writes {"error": {"kind", "message"}}.
func writeError(w http.ResponseWriter, status int, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, map[string]any{
		"error": pipeline.Failure{Kind: code, Message: errors.UserMessage(err)},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = uio.WriteJSON(v, w)
}
