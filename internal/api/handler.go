// Package api implements the HTTP request surface: route registration and
// the handler methods for every endpoint in the external-interface table.
// Route grouping follows the teacher's RegisterRoutes shape
// (internal/api/handler.go), trimmed to this service's endpoint set and
// rewritten to synchronous single-mutex judging instead of queue-backed
// async dispatch.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zhaozkTHU/oj/internal/apierr"
	"github.com/zhaozkTHU/oj/internal/cache"
	"github.com/zhaozkTHU/oj/internal/config"
	"github.com/zhaozkTHU/oj/internal/judge"
	"github.com/zhaozkTHU/oj/internal/models"
	"github.com/zhaozkTHU/oj/internal/ranking"
	"github.com/zhaozkTHU/oj/internal/services"
	"github.com/zhaozkTHU/oj/internal/store"
	"github.com/zhaozkTHU/oj/internal/telemetry"
	"github.com/zhaozkTHU/oj/internal/validation"
)

// Handler owns every dependency the request surface needs. It is
// constructed once in cmd/server and passed explicitly to RegisterRoutes,
// per the design notes' rejection of the implicit-singleton pattern.
type Handler struct {
	cfg      *config.Config
	users    *store.Users
	jobs     *store.Jobs
	contests *store.Contests

	breaker *services.CircuitBreakerService
	metrics *services.Metrics
	rank    *cache.RankList
	log     *telemetry.Logger

	// judgeMu is the global judging mutex: the judger owns a single
	// process-wide scratch directory, so at most one submission may be
	// judged at a time (spec §5).
	judgeMu sync.Mutex
}

func NewHandler(cfg *config.Config, users *store.Users, jobs *store.Jobs, contests *store.Contests, breaker *services.CircuitBreakerService, metrics *services.Metrics, rank *cache.RankList, log *telemetry.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		users:    users,
		jobs:     jobs,
		contests: contests,
		breaker:  breaker,
		metrics:  metrics,
		rank:     rank,
		log:      log,
	}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.POST("/jobs", h.CreateJob)
	r.GET("/jobs", h.ListJobs)
	r.GET("/jobs/:id", h.GetJob)
	r.PUT("/jobs/:id", h.RerunJob)

	r.POST("/users", h.CreateOrUpdateUser)
	r.GET("/users", h.ListUsers)

	r.POST("/contests", h.CreateOrUpdateContest)
	r.GET("/contests", h.ListContests)
	r.GET("/contests/:id", h.GetContest)
	r.GET("/contests/:id/ranklist", h.Ranklist)

	r.POST("/internal/exit", h.Exit)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	r.NoRoute(func(c *gin.Context) {
		writeError(c, apierr.NotFound("no such route"))
	})
}

func writeError(c *gin.Context, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, apierr.Envelope{
			Reason:  "ERR_SYSTEM",
			Code:    0,
			Message: err.Error(),
		})
		return
	}
	c.JSON(apiErr.Reason.HTTPStatus(), apiErr.Envelope())
}

// --- Jobs -------------------------------------------------------------

type jobRequest struct {
	SourceCode string `json:"source_code" binding:"required"`
	Language   string `json:"language" binding:"required"`
	UserID     int    `json:"user_id"`
	ContestID  int    `json:"contest_id"`
	ProblemID  int    `json:"problem_id" binding:"required"`
}

func (h *Handler) CreateJob(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apierr.InvalidArgument("%v", err))
		return
	}

	sub := models.Submission{
		SourceCode: req.SourceCode,
		Language:   req.Language,
		UserID:     req.UserID,
		ContestID:  req.ContestID,
		ProblemID:  req.ProblemID,
	}

	job, err := h.judgeNewSubmission(c.Request.Context(), sub)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// judgeNewSubmission validates the submission against the configuration
// registry and user directory, then runs it through the judger and
// appends the finalized job to the store.
func (h *Handler) judgeNewSubmission(ctx context.Context, sub models.Submission) (models.Job, error) {
	if _, ok := h.users.Get(sub.UserID); !ok {
		return models.Job{}, apierr.NotFound("user %d not found", sub.UserID)
	}
	if _, _, ok := h.cfg.ProblemByID(sub.ProblemID); !ok {
		return models.Job{}, apierr.NotFound("problem %d not found", sub.ProblemID)
	}
	if _, ok := h.cfg.LanguageByName(sub.Language); !ok {
		return models.Job{}, apierr.NotFound("language %q not found", sub.Language)
	}

	created := time.Now().UTC()
	cases, score, scoreVec, err := h.runJudging(ctx, sub)
	if err != nil {
		return models.Job{}, err
	}

	job := models.Job{
		CreatedTime: created,
		UpdatedTime: time.Now().UTC(),
		Submission:  sub,
		State:       models.JobFinished,
		Result:      judge.AggregateResult(cases),
		Score:       score,
		Cases:       cases,
		ScoreVec:    scoreVec,
	}
	job.ID = h.jobs.Append(job)

	h.metrics.RecordJob(job.Result)
	h.rank.InvalidateAll(ctx)
	return job, nil
}

// runJudging executes the judger under the global judging mutex, wrapped
// in the circuit breaker so repeated infrastructure failures (not judging
// outcomes) trip it.
func (h *Handler) runJudging(ctx context.Context, sub models.Submission) ([]models.CaseResult, float64, []float64, error) {
	_, problem, _ := h.cfg.ProblemByID(sub.ProblemID)
	language, _ := h.cfg.LanguageByName(sub.Language)

	h.judgeMu.Lock()
	defer h.judgeMu.Unlock()

	started := time.Now()
	out, err := h.breaker.ExecuteJudgeOperation(func() (any, error) {
		return judge.Run(ctx, sub.SourceCode, problem, language)
	})
	h.metrics.ObserveJudgingDuration(time.Since(started))

	if err != nil {
		h.metrics.RecordCircuitBreakerTrip()
		return nil, 0, nil, fmt.Errorf("judge: %w", err)
	}
	result := out.(judge.Result)
	return result.Cases, result.Score, result.ScoreVec, nil
}

func (h *Handler) GetJob(c *gin.Context) {
	id, err := validation.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, apierr.InvalidArgument("%v", err))
		return
	}
	if id >= h.jobs.NextID() {
		writeError(c, apierr.NotFound("job %d not found", id))
		return
	}
	job, ok := h.jobs.Get(id)
	if !ok {
		writeError(c, apierr.NotFound("job %d not found", id))
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) ListJobs(c *gin.Context) {
	jobs := h.jobs.Snapshot()

	filterUserID, hasUserID := queryInt(c, "user_id")
	filterContestID, hasContestID := queryInt(c, "contest_id")
	filterProblemID, hasProblemID := queryInt(c, "problem_id")
	userName := c.Query("user_name")
	language := c.Query("language")
	state := c.Query("state")
	result := c.Query("result")
	from := c.Query("from")
	to := c.Query("to")

	var fromTime, toTime time.Time
	if from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			fromTime = t
		}
	}
	if to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			toTime = t
		}
	}

	filtered := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if hasUserID && job.Submission.UserID != filterUserID {
			continue
		}
		if userName != "" {
			u, ok := h.users.Get(job.Submission.UserID)
			if !ok || u.Name != userName {
				continue
			}
		}
		if hasContestID && job.Submission.ContestID != filterContestID {
			continue
		}
		if hasProblemID && job.Submission.ProblemID != filterProblemID {
			continue
		}
		if language != "" && job.Submission.Language != language {
			continue
		}
		if state != "" && string(job.State) != state {
			continue
		}
		if result != "" && string(job.Result) != result {
			continue
		}
		if !fromTime.IsZero() && job.CreatedTime.Before(fromTime) {
			continue
		}
		if !toTime.IsZero() && job.CreatedTime.After(toTime) {
			continue
		}
		filtered = append(filtered, job)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedTime.Before(filtered[j].CreatedTime)
	})

	c.JSON(http.StatusOK, filtered)
}

func (h *Handler) RerunJob(c *gin.Context) {
	id, err := validation.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, apierr.InvalidArgument("%v", err))
		return
	}
	job, ok := h.jobs.Get(id)
	if !ok {
		writeError(c, apierr.NotFound("job %d not found", id))
		return
	}
	if job.State != models.JobFinished {
		writeError(c, apierr.InvalidState("job %d is not finished", id))
		return
	}

	// Rerun with the current configuration, not the one in effect at
	// submission time — load-bearing for graders who edit test cases
	// after a submission was made (spec design notes).
	cases, score, scoreVec, err := h.runJudging(c.Request.Context(), job.Submission)
	if err != nil {
		writeError(c, err)
		return
	}

	job.UpdatedTime = time.Now().UTC()
	job.Cases = cases
	job.Score = score
	job.ScoreVec = scoreVec
	job.Result = judge.AggregateResult(cases)
	job.State = models.JobFinished
	h.jobs.Replace(id, job)

	h.metrics.RecordJob(job.Result)
	h.rank.InvalidateAll(c.Request.Context())
	c.JSON(http.StatusOK, job)
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// --- Users --------------------------------------------------------------

type userRequest struct {
	ID   *int   `json:"id,omitempty"`
	Name string `json:"name" binding:"required"`
}

func (h *Handler) CreateOrUpdateUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apierr.InvalidArgument("%v", err))
		return
	}
	user, err := h.users.CreateOrUpdate(req.ID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.users.List())
}

// --- Contests -------------------------------------------------------------

type contestRequest struct {
	ID              *int   `json:"id,omitempty"`
	Name            string `json:"name"`
	From            string `json:"from"`
	To              string `json:"to"`
	ProblemIDs      []int  `json:"problem_ids"`
	UserIDs         []int  `json:"user_ids"`
	SubmissionLimit int    `json:"submission_limit"`
}

func (h *Handler) CreateOrUpdateContest(c *gin.Context) {
	var req contestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apierr.InvalidArgument("%v", err))
		return
	}
	contest, err := h.contests.CreateOrUpdate(store.ContestInput{
		ID:              req.ID,
		Name:            req.Name,
		From:            req.From,
		To:              req.To,
		ProblemIDs:      req.ProblemIDs,
		UserIDs:         req.UserIDs,
		SubmissionLimit: req.SubmissionLimit,
	}, h.cfg, h.users)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contest)
}

func (h *Handler) ListContests(c *gin.Context) {
	c.JSON(http.StatusOK, h.contests.List())
}

func (h *Handler) GetContest(c *gin.Context) {
	id, err := validation.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, apierr.InvalidArgument("%v", err))
		return
	}
	contest, err := h.contests.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contest)
}

func (h *Handler) Ranklist(c *gin.Context) {
	id, err := validation.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, apierr.InvalidArgument("%v", err))
		return
	}
	contest, err := h.contests.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}

	scoring := ranking.ScoringRule(c.Query("scoring_rule"))
	if scoring != ranking.ScoringHighest {
		scoring = ranking.ScoringLatest
	}
	tieBreaker := ranking.TieBreaker(c.Query("tie_breaker"))

	var rows []ranking.Row
	if h.rank.Get(c.Request.Context(), id, string(scoring), string(tieBreaker), &rows) {
		c.JSON(http.StatusOK, rows)
		return
	}

	started := time.Now()
	rows = ranking.Compute(h.cfg, h.jobs.Snapshot(), h.users.List(), id, scoring, tieBreaker, contest.UserIDs, contest.ProblemIDs)
	h.metrics.ObserveRanklistDuration(time.Since(started))

	h.rank.Set(c.Request.Context(), id, string(scoring), string(tieBreaker), rows)
	c.JSON(http.StatusOK, rows)
}

// --- Misc -----------------------------------------------------------------

// Exit is the "DO NOT REMOVE" shutdown hook used by automated testing,
// grounded in the original's /internal/exit handler.
func (h *Handler) Exit(c *gin.Context) {
	h.log.Info("shutdown requested via /internal/exit", nil)
	c.JSON(http.StatusOK, gin.H{"message": "exited"})
	go func() {
		time.Sleep(50 * time.Millisecond)
		os.Exit(0)
	}()
}
