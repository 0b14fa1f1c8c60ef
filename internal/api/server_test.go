package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/foliobuilder/internal/config"
	"git.home.luguber.info/inful/foliobuilder/internal/eventstore"
	"git.home.luguber.info/inful/foliobuilder/internal/orchestrator"
	"git.home.luguber.info/inful/foliobuilder/internal/plan"
	"git.home.luguber.info/inful/foliobuilder/internal/worker"
)

// stubWorker writes one file per task. Task IDs in fail report generation
// failure.
type stubWorker struct {
	fail map[string]bool
}

func (sw stubWorker) Execute(ctx context.Context, t *plan.Task, files map[string]string) (worker.Result, error) {
	if sw.fail[t.ID] {
		return worker.Result{TaskID: t.ID, Success: false, Error: "generation failed"}, nil
	}
	return worker.Result{
		TaskID:  t.ID,
		Success: true,
		Outputs: []worker.Output{
			{Path: "/out/" + t.ID + ".html", Content: "<p>" + t.ID + "</p>", ContentType: "text/html"},
		},
	}, nil
}

func newTestServer(t *testing.T, w worker.Worker, history *eventstore.Store) (*Server, *orchestrator.Orchestrator) {
	t.Helper()
	orch := orchestrator.New(orchestrator.NewRegistry(), w)
	if history != nil {
		orch.AddSink(eventstore.NewSink(history))
	}
	return NewServer(config.Default().Server, orch, history, nil), orch
}

func createBuild(t *testing.T, s *Server) string {
	t.Helper()
	body, _ := json.Marshal(CreateBuildRequest{
		OwnerID: "owner-1",
		Source: plan.ContentSource{
			Name:   "Kari Nordmann",
			Skills: []string{"Go"},
			Email:  "kari@example.com",
		},
		Style: "modern",
	})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/builds/", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Success bool              `json:"success"`
		Data    orchestrator.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Data.ID)
	return resp.Data.ID
}

func waitForBuild(t *testing.T, orch *orchestrator.Orchestrator, id string, want orchestrator.BuildStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		b := orch.GetBuild(id)
		return b != nil && b.Status() == want
	}, 5*time.Second, 5*time.Millisecond)
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t, stubWorker{}, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestCreateAndGetBuild(t *testing.T) {
	s, orch := newTestServer(t, stubWorker{}, nil)
	id := createBuild(t, s)
	waitForBuild(t, orch, id, orchestrator.BuildStatusCompleted)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data orchestrator.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, orchestrator.BuildStatusCompleted, resp.Data.Status)
	assert.Equal(t, 100, resp.Data.Progress.Percent)
	assert.NotEmpty(t, resp.Data.Tasks)
}

func TestCreateBuildRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t, stubWorker{}, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/builds/", bytes.NewReader([]byte("{not json"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/builds/", bytes.NewReader([]byte(`{"owner_id":"o"}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing style")
}

func TestGetBuildNotFound(t *testing.T) {
	s, _ := newTestServer(t, stubWorker{}, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListBuilds(t *testing.T) {
	s, orch := newTestServer(t, stubWorker{}, nil)
	id1 := createBuild(t, s)
	id2 := createBuild(t, s)
	waitForBuild(t, orch, id1, orchestrator.BuildStatusCompleted)
	waitForBuild(t, orch, id2, orchestrator.BuildStatusCompleted)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []orchestrator.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestFileEndpoints(t *testing.T) {
	s, orch := newTestServer(t, stubWorker{}, nil)
	id := createBuild(t, s)
	waitForBuild(t, orch, id, orchestrator.BuildStatusCompleted)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds/"+id+"/files", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []FileInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, 1, resp.Data[0].Version)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds/"+id+"/files/out/init.html", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>init</p>", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds/"+id+"/files/out/missing.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRetryEndpoint(t *testing.T) {
	s, orch := newTestServer(t, stubWorker{fail: map[string]bool{"skills": true}}, nil)
	id := createBuild(t, s)
	waitForBuild(t, orch, id, orchestrator.BuildStatusFailed)

	// Retrying a task that did not fail is a conflict.
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/builds/"+id+"/tasks/init/retry", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/builds/"+id+"/tasks/skills/retry", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRegenerateEndpoint(t *testing.T) {
	s, orch := newTestServer(t, stubWorker{}, nil)
	id := createBuild(t, s)
	waitForBuild(t, orch, id, orchestrator.BuildStatusCompleted)

	body := bytes.NewReader([]byte(`{"instruction":"shorter"}`))
	req := httptest.NewRequest(http.MethodPost, "/builds/"+id+"/sections/skills/regenerate", body)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/builds/"+id+"/sections/blog/regenerate", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelEndpoint(t *testing.T) {
	s, orch := newTestServer(t, stubWorker{}, nil)
	id := createBuild(t, s)
	waitForBuild(t, orch, id, orchestrator.BuildStatusCompleted)

	// Already terminal.
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/builds/"+id+"/cancel", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	store, err := eventstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s, orch := newTestServer(t, stubWorker{}, store)
	id := createBuild(t, s)
	waitForBuild(t, orch, id, orchestrator.BuildStatusCompleted)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds/"+id+"/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []eventstore.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, orchestrator.EventBuildStarted, resp.Data[0].Type)
	assert.Equal(t, orchestrator.EventBuildCompleted, resp.Data[len(resp.Data)-1].Type)
}

func TestHistoryEndpointDisabled(t *testing.T) {
	s, _ := newTestServer(t, stubWorker{}, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds/any/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
