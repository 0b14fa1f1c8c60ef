package api

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"sort"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/foliobuilder/internal/orchestrator"
	"git.home.luguber.info/inful/foliobuilder/internal/plan"
	"git.home.luguber.info/inful/foliobuilder/internal/vfs"
)

// CreateBuildRequest is the body of POST /builds.
type CreateBuildRequest struct {
	OwnerID     string             `json:"owner_id"`
	PortfolioID string             `json:"portfolio_id,omitempty"`
	Source      plan.ContentSource `json:"source"`
	Style       string             `json:"style"`
	Sections    []string           `json:"sections,omitempty"`
}

// RegenerateRequest is the body of the section regenerate endpoint.
type RegenerateRequest struct {
	Instruction string `json:"instruction,omitempty"`
}

func (s *Server) handleCreateBuild(w http.ResponseWriter, r *http.Request) {
	var req CreateBuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()

	b, err := s.orch.StartBuild(r.Context(), orchestrator.StartRequest{
		OwnerID:     req.OwnerID,
		PortfolioID: req.PortfolioID,
		Source:      req.Source,
		Style:       req.Style,
		Sections:    req.Sections,
	})
	if err != nil {
		s.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	slog.Info("Build created via API", "build_id", b.ID, "owner_id", b.OwnerID)
	s.Success(w, http.StatusAccepted, b.Snapshot())
}

func (s *Server) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	builds := s.orch.Registry().List()
	views := make([]orchestrator.View, 0, len(builds))
	for _, b := range builds {
		views = append(views, b.Snapshot())
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	s.Success(w, http.StatusOK, views)
}

func (s *Server) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	b := s.orch.GetBuild(chi.URLParam(r, "id"))
	if b == nil {
		s.Error(w, http.StatusNotFound, "build not found")
		return
	}
	s.Success(w, http.StatusOK, b.Snapshot())
}

// FileInfo describes one generated file in a listing.
type FileInfo struct {
	Path    string `json:"path"`
	Size    int    `json:"size"`
	Version int    `json:"version"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	b := s.orch.GetBuild(chi.URLParam(r, "id"))
	if b == nil {
		s.Error(w, http.StatusNotFound, "build not found")
		return
	}

	store := b.Store()
	paths := store.ListFiles(r.URL.Query().Get("prefix"))
	infos := make([]FileInfo, 0, len(paths))
	for _, p := range paths {
		if f, ok := store.Stat(p); ok {
			infos = append(infos, FileInfo{Path: f.Path, Size: len(f.Content), Version: f.Version})
		}
	}
	s.Success(w, http.StatusOK, infos)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	b := s.orch.GetBuild(chi.URLParam(r, "id"))
	if b == nil {
		s.Error(w, http.StatusNotFound, "build not found")
		return
	}

	filePath := vfs.NormalizePath(chi.URLParam(r, "*"))
	content, ok := b.Store().Read(filePath)
	if !ok {
		s.Error(w, http.StatusNotFound, "file not found")
		return
	}

	contentType := mime.TypeByExtension(path.Ext(filePath))
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func (s *Server) handleCancelBuild(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.orch.Cancel(id) {
		s.Error(w, http.StatusConflict, "build not found or already finished")
		return
	}
	s.Success(w, http.StatusOK, map[string]string{"build_id": id, "status": "cancelled"})
}

func (s *Server) handleRetryTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	taskID := chi.URLParam(r, "taskID")

	if err := s.orch.RetryTask(r.Context(), id, taskID); err != nil {
		s.Error(w, http.StatusConflict, err.Error())
		return
	}
	s.Success(w, http.StatusAccepted, map[string]string{"build_id": id, "task_id": taskID})
}

func (s *Server) handleRegenerateSection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sectionID := chi.URLParam(r, "sectionID")

	var req RegenerateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	defer r.Body.Close()

	if err := s.orch.RegenerateSection(r.Context(), id, sectionID, req.Instruction); err != nil {
		s.Error(w, http.StatusConflict, err.Error())
		return
	}
	s.Success(w, http.StatusAccepted, map[string]string{"build_id": id, "section": sectionID})
}

func (s *Server) handleBuildHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.Error(w, http.StatusNotFound, "event history is not enabled")
		return
	}

	records, err := s.history.GetByBuildID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.Error(w, http.StatusInternalServerError, "failed to read event history")
		return
	}
	s.Success(w, http.StatusOK, records)
}
