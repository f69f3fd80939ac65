package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/edulytic/mastery-service/internal/clients"
	"github.com/edulytic/mastery-service/internal/history"
	"github.com/edulytic/mastery-service/internal/mastery"
	"github.com/edulytic/mastery-service/internal/platform/cache"
	"github.com/edulytic/mastery-service/internal/platform/database"
	"github.com/edulytic/mastery-service/internal/vocab"
)

// server holds the HTTP handler dependencies. db, cacheConn and
// results may be nil when the corresponding backend is not configured;
// snapshots then live in the in-memory store only.
type server struct {
	pipeline  *mastery.Pipeline
	voc       *vocab.Vocabulary
	snapshots history.SnapshotStore
	results   *history.ResultCache
	db        *database.DB
	cacheConn *cache.Cache
	progress  *clients.ProgressClient
	scorerTag string

	// scorerHealth pings the model endpoint; nil for the mock scorer.
	scorerHealth interface {
		HealthCheck(ctx context.Context) error
	}
}

// newMux creates the HTTP router.
func newMux(s *server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/mastery/predict", s.handlePredict)
	mux.HandleFunc("GET /v1/mastery/sample", s.handleSample)
	mux.HandleFunc("GET /v1/mastery/{userID}", s.handleGetMastery)
	mux.HandleFunc("POST /v1/mastery/{userID}/refresh", s.handleRefresh)
	mux.HandleFunc("GET /v1/model/info", s.handleModelInfo)
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	return mux
}

type predictRequest struct {
	UserID       string                `json:"userId"`
	Interactions []mastery.Interaction `json:"interactions"`
}

type predictResponse struct {
	UserID            string             `json:"userId,omitempty"`
	MasteryScores     map[string]float64 `json:"masteryScores"`
	TotalSkills       int                `json:"totalSkills"`
	TotalInteractions int                `json:"totalInteractions"`
}

func (s *server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	scores, err := s.pipeline.Score(r.Context(), req.Interactions)
	if err != nil {
		s.writeScoreError(w, err)
		return
	}

	if req.UserID != "" {
		s.persist(r.Context(), req.UserID, scores, len(req.Interactions))
	}

	writeJSON(w, http.StatusOK, predictResponse{
		UserID:            req.UserID,
		MasteryScores:     scores,
		TotalSkills:       len(scores),
		TotalInteractions: len(req.Interactions),
	})
}

func (s *server) handleSample(w http.ResponseWriter, r *http.Request) {
	sample := mastery.SampleInteractions()
	scores, err := s.pipeline.Score(r.Context(), sample)
	if err != nil {
		s.writeScoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		MasteryScores:     scores,
		TotalSkills:       len(scores),
		TotalInteractions: len(sample),
	})
}

// handleRefresh pulls the student's interaction history from the
// progress service, scores it and stores the result.
func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.progress == nil {
		writeError(w, http.StatusServiceUnavailable, "progress service is not configured")
		return
	}

	userID := r.PathValue("userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	interactions, err := s.progress.InteractionHistory(r.Context(), userID)
	if err != nil {
		slog.Error("interaction history fetch failed", "user_id", userID, "error", err)
		writeError(w, http.StatusBadGateway, "interaction history fetch failed")
		return
	}

	scores, err := s.pipeline.Score(r.Context(), interactions)
	if err != nil {
		s.writeScoreError(w, err)
		return
	}

	s.persist(r.Context(), userID, scores, len(interactions))

	writeJSON(w, http.StatusOK, predictResponse{
		UserID:            userID,
		MasteryScores:     scores,
		TotalSkills:       len(scores),
		TotalInteractions: len(interactions),
	})
}

func (s *server) handleGetMastery(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	if s.results != nil {
		scores, ok, err := s.results.Get(r.Context(), userID)
		if err != nil {
			slog.Warn("result cache lookup failed", "user_id", userID, "error", err)
		} else if ok {
			writeJSON(w, http.StatusOK, predictResponse{
				UserID:        userID,
				MasteryScores: scores,
				TotalSkills:   len(scores),
			})
			return
		}
	}

	snap, err := s.snapshots.Latest(r.Context(), userID)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no mastery snapshot for user")
			return
		}
		slog.Error("snapshot lookup failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "snapshot lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		UserID:            snap.UserID,
		MasteryScores:     snap.Scores,
		TotalSkills:       len(snap.Scores),
		TotalInteractions: snap.Interactions,
	})
}

type modelInfoResponse struct {
	NumSkills    int    `json:"numSkills"`
	MaxSeqLen    int    `json:"maxSeqLen"`
	ModelVersion string `json:"modelVersion,omitempty"`
	Scorer       string `json:"scorer"`
}

func (s *server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	meta := s.voc.Meta()
	writeJSON(w, http.StatusOK, modelInfoResponse{
		NumSkills:    s.voc.NumSkills(),
		MaxSeqLen:    s.voc.MaxSeqLen(mastery.DefaultMaxSeqLen),
		ModelVersion: meta.ModelVersion,
		Scorer:       s.scorerTag,
	})
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.cacheConn != nil {
		if err := s.cacheConn.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
	}
	if s.scorerHealth != nil {
		if err := s.scorerHealth.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "model endpoint unavailable")
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// persist stores the computed scores; failures are logged, never
// surfaced to the caller.
func (s *server) persist(ctx context.Context, userID string, scores map[string]float64, interactions int) {
	if _, err := s.snapshots.Save(ctx, history.Snapshot{
		UserID:       userID,
		Scores:       scores,
		Interactions: interactions,
	}); err != nil {
		slog.Error("snapshot save failed", "user_id", userID, "error", err)
	}
	if s.results != nil {
		if err := s.results.Set(ctx, userID, scores); err != nil {
			slog.Warn("result cache write failed", "user_id", userID, "error", err)
		}
	}
}

func (s *server) writeScoreError(w http.ResponseWriter, err error) {
	var valErr *mastery.ValidationError
	var infErr *mastery.InferenceError
	switch {
	case errors.Is(err, mastery.ErrInsufficientData):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &valErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &infErr):
		slog.Error("model inference failed", "error", err)
		writeError(w, http.StatusBadGateway, "model inference failed")
	default:
		slog.Error("scoring failed", "error", err)
		writeError(w, http.StatusInternalServerError, "scoring failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
