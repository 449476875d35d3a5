// Package ranking computes a contest's rank list from a job store
// snapshot: scope by contest, dynamic re-scoring for dynamic_ranking
// problems, per-user-per-problem score aggregation, tie-break sorting, and
// contest projection. The algorithm follows
// _examples/original_source/src/contests.rs's get_contests_ranklist
// handler line for line, translated into explicit Go data structures
// instead of the original's module-level RESPONSE_LIST/USER_LIST statics.
package ranking

import (
	"sort"

	"github.com/zhaozkTHU/oj/internal/config"
	"github.com/zhaozkTHU/oj/internal/models"
)

type ScoringRule string

const (
	ScoringLatest  ScoringRule = "latest"
	ScoringHighest ScoringRule = "highest"
)

type TieBreaker string

const (
	TieBreakerNone             TieBreaker = ""
	TieBreakerSubmissionCount  TieBreaker = "submission_count"
	TieBreakerSubmissionTime   TieBreaker = "submission_time"
	TieBreakerUserID           TieBreaker = "user_id"
)

type Row struct {
	User            models.User `json:"user"`
	Rank            int         `json:"rank"`
	Scores          []float64   `json:"scores"`
	SubmissionCount int         `json:"submission_count"`
}

// slot is one cell of the userScore[user][problem] matrix: the kept score
// and the creation time of the submission it came from.
type slot struct {
	score       float64
	createdTime string
}

// Compute derives the rank list for contestID from the full (unscoped) job
// snapshot and the full user list, per spec §4.6.
func Compute(cfg *config.Config, allJobs []models.Job, allUsers []models.User, contestID int, scoring ScoringRule, tieBreaker TieBreaker, contestUserIDs, contestProblemIDs []int) []Row {
	numProblems := len(cfg.Problems)
	numUsers := len(allUsers)

	userScore := make([][]slot, numUsers)
	for i := range userScore {
		userScore[i] = make([]slot, numProblems)
	}
	submissionCount := make([]int, numUsers)

	rescored := rescoreDynamic(cfg, allJobs)

	for _, job := range rescored {
		if contestID != 0 && job.Submission.ContestID != contestID {
			continue
		}
		userID := job.Submission.UserID
		problemIdx, _, ok := cfg.ProblemByID(job.Submission.ProblemID)
		if !ok || userID < 0 || userID >= numUsers {
			continue
		}
		submissionCount[userID]++

		created := models.MarshalTimeRFC3339Milli(job.CreatedTime)
		cell := &userScore[userID][problemIdx]

		if scoring == ScoringHighest {
			if job.Score > cell.score {
				*cell = slot{score: job.Score, createdTime: created}
			}
		} else {
			if created > cell.createdTime || cell.createdTime == "" {
				*cell = slot{score: job.Score, createdTime: created}
			}
		}
	}

	total := make([]float64, numUsers)
	for u, row := range userScore {
		for _, cell := range row {
			total[u] += cell.score
		}
	}

	latestTime := make([]string, numUsers)
	if tieBreaker == TieBreakerSubmissionTime {
		for u, row := range userScore {
			for _, cell := range row {
				if cell.createdTime != "" && (latestTime[u] == "" || cell.createdTime > latestTime[u]) {
					latestTime[u] = cell.createdTime
				}
			}
		}
	}

	order := make([]int, numUsers)
	for i := range order {
		order[i] = i
	}

	switch tieBreaker {
	case TieBreakerSubmissionCount:
		sort.SliceStable(order, func(i, j int) bool {
			a, b := order[i], order[j]
			if total[a] != total[b] {
				return total[a] > total[b]
			}
			return submissionCount[a] < submissionCount[b]
		})
	case TieBreakerSubmissionTime:
		sort.SliceStable(order, func(i, j int) bool {
			a, b := order[i], order[j]
			if total[a] != total[b] {
				return total[a] > total[b]
			}
			aEmpty, bEmpty := latestTime[a] == "", latestTime[b] == ""
			if aEmpty && bEmpty {
				return false
			}
			if aEmpty {
				return false // empty sorts last
			}
			if bEmpty {
				return true
			}
			return latestTime[a] < latestTime[b]
		})
	default: // "user_id" and the no-tie-breaker default both sort ascending by id on ties
		sort.SliceStable(order, func(i, j int) bool {
			a, b := order[i], order[j]
			if total[a] != total[b] {
				return total[a] > total[b]
			}
			return a < b
		})
	}

	rows := make([]Row, 0, numUsers)
	rank := 1
	for i, u := range order {
		if i != 0 {
			prev := order[i-1]
			newClass := false
			switch tieBreaker {
			case TieBreakerSubmissionCount:
				newClass = total[u] != total[prev] || submissionCount[u] != submissionCount[prev]
			case TieBreakerSubmissionTime:
				newClass = total[u] != total[prev] || latestTime[u] != latestTime[prev]
			case TieBreakerUserID:
				newClass = true // every row its own class, no ties ever
			default:
				newClass = total[u] != total[prev]
			}
			if newClass {
				rank = i + 1
			}
		}

		scores := make([]float64, numProblems)
		for p := 0; p < numProblems; p++ {
			scores[p] = userScore[u][p].score
		}

		rows = append(rows, Row{
			User:            allUsers[u],
			Rank:            rank,
			Scores:          scores,
			SubmissionCount: submissionCount[u],
		})
	}

	if contestID != 0 {
		rows = project(rows, contestUserIDs, contestProblemIDs, cfg)
	}

	return rows
}

// rescoreDynamic applies the dynamic_ranking re-scoring step to a copy of
// every job (the originals in the store are never mutated). shortest[i] is
// computed globally across the entire job store for the job's problem,
// not scoped to the current contest — preserved intentionally (see
// DESIGN.md's "Open Question decisions" on the dynamic re-scoring scope).
func rescoreDynamic(cfg *config.Config, allJobs []models.Job) []models.Job {
	out := make([]models.Job, len(allJobs))
	copy(out, allJobs)

	for i, job := range out {
		_, problem, ok := cfg.ProblemByID(job.Submission.ProblemID)
		if !ok || problem.Type != models.ProblemDynamicRanking || problem.Misc.DynamicRankingRatio == nil {
			continue
		}
		ratio := *problem.Misc.DynamicRankingRatio

		if job.Result != models.VerdictAccepted {
			out[i].Score = job.Score * ratio
			continue
		}

		shortest := globalShortestTimes(allJobs, job.Submission.ProblemID, len(problem.Cases))

		var newScore float64
		for c := 0; c < len(job.ScoreVec); c++ {
			if c+1 >= len(job.Cases) {
				continue
			}
			thisTime := job.Cases[c+1].Time
			if thisTime <= 0 {
				continue
			}
			newScore += job.ScoreVec[c] * ((1 - ratio) + ratio*float64(shortest[c])/float64(thisTime))
		}
		out[i].Score = newScore
	}
	return out
}

// globalShortestTimes finds, for each post-compile case index, the
// minimum recorded case time across every job in the store for the given
// problem (any result, not just Accepted — matching the original, which
// scans every job's cases unconditionally).
func globalShortestTimes(allJobs []models.Job, problemID int, numCases int) []int64 {
	shortest := make([]int64, numCases)
	for _, job := range allJobs {
		if job.Submission.ProblemID != problemID {
			continue
		}
		for c := 0; c < numCases && c+1 < len(job.Cases); c++ {
			t := job.Cases[c+1].Time
			if t > 0 && (shortest[c] == 0 || t < shortest[c]) {
				shortest[c] = t
			}
		}
	}
	return shortest
}

// project filters rows down to the contest's user_ids and narrows each
// row's scores vector to the contest's problem_ids, in that order. Ranks
// computed before this step are preserved unchanged.
func project(rows []Row, contestUserIDs, contestProblemIDs []int, cfg *config.Config) []Row {
	allowed := make(map[int]bool, len(contestUserIDs))
	for _, id := range contestUserIDs {
		allowed[id] = true
	}

	problemIdx := make([]int, len(contestProblemIDs))
	for i, pid := range contestProblemIDs {
		idx, _, _ := cfg.ProblemByID(pid)
		problemIdx[i] = idx
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if !allowed[row.User.ID] {
			continue
		}
		projected := make([]float64, len(problemIdx))
		for i, idx := range problemIdx {
			if idx < len(row.Scores) {
				projected[i] = row.Scores[idx]
			}
		}
		row.Scores = projected
		out = append(out, row)
	}
	return out
}
