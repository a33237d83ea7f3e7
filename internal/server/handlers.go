package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/composition"
	"github.com/dygy/sonigraph/internal/midi"
	"github.com/dygy/sonigraph/internal/pipeline"
	"github.com/dygy/sonigraph/internal/strudel"
	"github.com/dygy/sonigraph/internal/workspace"
)

const maxRequestSize = 1 << 20 // 1MB

// composeRequest selects either a vault note or a ready prose record
type composeRequest struct {
	NodeID    string           `json:"node_id"`
	MaxDepth  int              `json:"max_depth,omitempty"`
	NoCache   bool             `json:"no_cache,omitempty"`
	Prose     *analysis.Prose  `json:"prose,omitempty"`
	Neighbors map[int][]string `json:"neighbors,omitempty"`
}

// composeResponse links the stored composition's downloads
type composeResponse struct {
	ID          string  `json:"id"`
	NodeID      string  `json:"node_id"`
	ContentType string  `json:"content_type"`
	Tempo       float64 `json:"tempo"`
	Notes       int     `json:"notes"`
	MIDI        string  `json:"midi"`
	Strudel     string  `json:"strudel"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"compositions": s.store.Len(),
	})
}

// handleCompose runs the pipeline and stores the result
func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)

	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.ComposeTTL)
	defer cancel()

	var (
		c   *composition.Composition
		err error
	)
	switch {
	case req.Prose != nil:
		id := req.NodeID
		if id == "" {
			id = "prose"
		}
		c, err = s.composer.ComposeProse(ctx, id, *req.Prose, req.Neighbors)
	case req.NodeID != "":
		c, err = s.composer.Compose(ctx, pipeline.Request{
			NodeID:   req.NodeID,
			MaxDepth: req.MaxDepth,
			NoCache:  req.NoCache,
		})
	default:
		writeError(w, http.StatusBadRequest, "Provide node_id or prose.")
		return
	}

	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		s.logger.Error("compose failed", slog.String("node", req.NodeID), slog.Any("error", err))
		writeError(w, status, "Composition failed.")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "No composition for this node.")
		return
	}

	code := strudel.NewGenerator(s.config.Quantize).Generate(c)
	s.store.Put(c, code)
	id := c.ID

	writeJSON(w, http.StatusCreated, composeResponse{
		ID:          id,
		NodeID:      c.NodeID,
		ContentType: string(c.ContentType),
		Tempo:       c.Tempo,
		Notes:       len(c.Notes),
		MIDI:        fmt.Sprintf("/compositions/%s/midi", id),
		Strudel:     fmt.Sprintf("/compositions/%s/strudel", id),
	})
}

// handleComposition returns the stored composition as JSON
func (s *Server) handleComposition(w http.ResponseWriter, r *http.Request) {
	entry := s.store.Get(chi.URLParam(r, "id"))
	if entry == nil {
		writeError(w, http.StatusNotFound, "Composition not found.")
		return
	}
	writeJSON(w, http.StatusOK, entry.Composition)
}

// handleDownloadMIDI renders the composition as a Standard MIDI File
func (s *Server) handleDownloadMIDI(w http.ResponseWriter, r *http.Request) {
	entry := s.store.Get(chi.URLParam(r, "id"))
	if entry == nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := midi.WriteSMF(&buf, entry.Composition); err != nil {
		s.logger.Error("midi export failed", slog.String("id", entry.Composition.ID), slog.Any("error", err))
		http.Error(w, "MIDI export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"%s.mid\"", workspace.Slug(entry.Composition.NodeID)))
	w.Write(buf.Bytes())
}

// handleStrudel serves the generated Strudel code
func (s *Server) handleStrudel(w http.ResponseWriter, r *http.Request) {
	entry := s.store.Get(chi.URLParam(r, "id"))
	if entry == nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(entry.Strudel))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
