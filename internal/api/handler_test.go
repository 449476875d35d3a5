package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/zhaozkTHU/oj/internal/config"
	"github.com/zhaozkTHU/oj/internal/models"
	"github.com/zhaozkTHU/oj/internal/services"
	"github.com/zhaozkTHU/oj/internal/store"
	"github.com/zhaozkTHU/oj/internal/telemetry"
)

func newTestServer(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Problems: []models.Problem{
			{
				ID:   1,
				Name: "echo",
				Type: models.ProblemStandard,
				Cases: []models.Case{
					{Score: 100, InputFile: writeTempFile(t, "hello\n"), AnswerFile: writeTempFile(t, "hello\n"), TimeLimit: 2_000_000},
				},
			},
		},
		Languages: []models.Language{
			{
				Name:     "shell",
				FileName: "main.sh",
				Command:  []string{"/bin/sh", "-c", "cp %INPUT% %OUTPUT% && chmod +x %OUTPUT%"},
			},
		},
	}

	h := NewHandler(
		cfg,
		store.NewUsers(),
		store.NewJobs(),
		store.NewContests(),
		services.NewCircuitBreakerService(),
		services.NewMetrics(),
		nil,
		telemetry.New(telemetry.Error),
	)

	r := gin.New()
	RegisterRoutes(r, h)
	return r, h
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "case-*")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return f.Name()
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateJobAccepted(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/jobs", map[string]any{
		"source_code": "#!/bin/sh\ncat\n",
		"language":    "shell",
		"user_id":     0,
		"contest_id":  0,
		"problem_id":  1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var job models.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.Result != models.VerdictAccepted {
		t.Fatalf("result = %v, want Accepted", job.Result)
	}
	if job.ID != 0 {
		t.Fatalf("first job id = %d, want 0", job.ID)
	}
}

func TestCreateJobUnknownUserNotFound(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/jobs", map[string]any{
		"source_code": "x",
		"language":    "shell",
		"user_id":     99,
		"problem_id":  1,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreateJobUnknownProblemNotFound(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/jobs", map[string]any{
		"source_code": "x",
		"language":    "shell",
		"user_id":     0,
		"problem_id":  999,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetJobRoundTrip(t *testing.T) {
	r, _ := newTestServer(t)

	createRec := doJSON(t, r, http.MethodPost, "/jobs", map[string]any{
		"source_code": "#!/bin/sh\ncat\n",
		"language":    "shell",
		"user_id":     0,
		"problem_id":  1,
	})
	var created models.Job
	json.Unmarshal(createRec.Body.Bytes(), &created)

	getRec := doJSON(t, r, http.MethodGet, fmt.Sprintf("/jobs/%d", created.ID), nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", getRec.Code, getRec.Body.String())
	}
	var fetched models.Job
	json.Unmarshal(getRec.Body.Bytes(), &fetched)
	if fetched.ID != created.ID || fetched.Result != created.Result {
		t.Fatalf("round trip mismatch: created=%+v fetched=%+v", created, fetched)
	}
}

func TestGetJobUnknownID(t *testing.T) {
	r, _ := newTestServer(t)
	rec := doJSON(t, r, http.MethodGet, "/jobs/123", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRerunOnlyAllowedWhenFinished(t *testing.T) {
	r, h := newTestServer(t)

	createRec := doJSON(t, r, http.MethodPost, "/jobs", map[string]any{
		"source_code": "#!/bin/sh\ncat\n",
		"language":    "shell",
		"user_id":     0,
		"problem_id":  1,
	})
	var created models.Job
	json.Unmarshal(createRec.Body.Bytes(), &created)

	rerunRec := doJSON(t, r, http.MethodPut, fmt.Sprintf("/jobs/%d", created.ID), nil)
	if rerunRec.Code != http.StatusOK {
		t.Fatalf("rerun status = %d, body = %s", rerunRec.Code, rerunRec.Body.String())
	}

	running, _ := h.jobs.Get(created.ID)
	running.State = models.JobRunning
	h.jobs.Replace(created.ID, running)
	runningRec := doJSON(t, r, http.MethodPut, fmt.Sprintf("/jobs/%d", created.ID), nil)
	if runningRec.Code != http.StatusBadRequest {
		t.Fatalf("rerun of non-finished job: status = %d, want 400", runningRec.Code)
	}

	missingRec := doJSON(t, r, http.MethodPut, "/jobs/999", nil)
	if missingRec.Code != http.StatusNotFound {
		t.Fatalf("rerun of unknown job: status = %d, want 404", missingRec.Code)
	}
}

func TestCreateOrUpdateUserCollision(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/users", map[string]any{"name": "alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	dupRec := doJSON(t, r, http.MethodPost, "/users", map[string]any{"name": "alice"})
	if dupRec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate name status = %d, want 400", dupRec.Code)
	}
}

func TestListUsersIncludesRoot(t *testing.T) {
	r, _ := newTestServer(t)
	rec := doJSON(t, r, http.MethodGet, "/users", nil)

	var users []models.User
	json.Unmarshal(rec.Body.Bytes(), &users)
	if len(users) != 1 || users[0].Name != "root" {
		t.Fatalf("got %+v, want just root", users)
	}
}

func TestCreateContestIDZeroRejected(t *testing.T) {
	r, _ := newTestServer(t)
	zero := 0
	rec := doJSON(t, r, http.MethodPost, "/contests", map[string]any{
		"id":   &zero,
		"name": "global attempt",
		"from": "2026-01-01T00:00:00Z",
		"to":   "2026-01-02T00:00:00Z",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListContestsOmitsZero(t *testing.T) {
	r, _ := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/contests", map[string]any{
		"name": "c1",
		"from": "2026-01-01T00:00:00Z",
		"to":   "2026-01-02T00:00:00Z",
	})

	rec := doJSON(t, r, http.MethodGet, "/contests", nil)
	var contests []models.Contest
	json.Unmarshal(rec.Body.Bytes(), &contests)
	for _, c := range contests {
		if c.ID == 0 {
			t.Fatal("contest list must never include id 0")
		}
	}
}

func TestRanklistGlobalScope(t *testing.T) {
	r, _ := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/jobs", map[string]any{
		"source_code": "#!/bin/sh\ncat\n",
		"language":    "shell",
		"user_id":     0,
		"problem_id":  1,
	})

	rec := doJSON(t, r, http.MethodGet, "/contests/0/ranklist", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
