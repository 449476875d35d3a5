package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Verdict is the outcome of compiling or running a single case. The wire
// representation is the space-separated form used throughout the rest of
// the judging ecosystem ("Compilation Success", "Wrong Answer", ...).
type Verdict string

const (
	VerdictCompilationSuccess Verdict = "CompilationSuccess"
	VerdictCompilationError   Verdict = "CompilationError"
	VerdictAccepted           Verdict = "Accepted"
	VerdictWrongAnswer        Verdict = "WrongAnswer"
	VerdictRuntimeError       Verdict = "RuntimeError"
	VerdictTimeLimitExceeded  Verdict = "TimeLimitExceeded"
	VerdictWaiting            Verdict = "Waiting"
	VerdictSkipped            Verdict = "Skipped"
	VerdictSystemError        Verdict = "SystemError"
)

var verdictWire = map[Verdict]string{
	VerdictCompilationSuccess: "Compilation Success",
	VerdictCompilationError:   "Compilation Error",
	VerdictAccepted:           "Accepted",
	VerdictWrongAnswer:        "Wrong Answer",
	VerdictRuntimeError:       "Runtime Error",
	VerdictTimeLimitExceeded:  "Time Limit Exceeded",
	VerdictWaiting:            "Waiting",
	VerdictSkipped:            "Skipped",
	VerdictSystemError:        "System Error",
}

var wireVerdict = func() map[string]Verdict {
	m := make(map[string]Verdict, len(verdictWire))
	for k, v := range verdictWire {
		m[v] = k
	}
	return m
}()

func (v Verdict) MarshalJSON() ([]byte, error) {
	wire, ok := verdictWire[v]
	if !ok {
		return nil, fmt.Errorf("models: unknown verdict %q", string(v))
	}
	return json.Marshal(wire)
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	var wire string
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	parsed, ok := wireVerdict[wire]
	if !ok {
		return fmt.Errorf("models: unrecognized verdict %q", wire)
	}
	*v = parsed
	return nil
}

// JobState is the lifecycle state of a Job.
type JobState string

const (
	JobQueueing JobState = "Queueing"
	JobRunning  JobState = "Running"
	JobFinished JobState = "Finished"
	JobCanceled JobState = "Canceled"
)

// Case is one test input/answer pair belonging to a Problem.
type Case struct {
	Score       float64 `json:"score"`
	InputFile   string  `json:"input_file"`
	AnswerFile  string  `json:"answer_file"`
	TimeLimit   int64   `json:"time_limit"` // microseconds
	MemoryLimit int     `json:"memory_limit"`
}

// Misc carries the optional per-problem knobs: packing groups (case indices,
// 1-based, matching the position within problem.Cases) and the dynamic
// ranking ratio.
type Misc struct {
	Packing             [][]int  `json:"packing,omitempty"`
	SpecialJudge        []string `json:"special_judge,omitempty"`
	DynamicRankingRatio *float64 `json:"dynamic_ranking_ratio,omitempty"`
}

// ProblemType enumerates the comparison / scoring mode for a Problem.
type ProblemType string

const (
	ProblemStandard           ProblemType = "standard"
	ProblemStrict             ProblemType = "strict"
	ProblemDynamicRanking     ProblemType = "dynamic_ranking"
	ProblemSpecialJudgeFuture ProblemType = "special_judge-reserved"
)

// Problem is identified by an externally assigned numeric id, not
// necessarily its position in the catalog.
type Problem struct {
	ID    int         `json:"id"`
	Name  string      `json:"name"`
	Type  ProblemType `json:"type"`
	Misc  Misc        `json:"misc"`
	Cases []Case      `json:"cases"`
}

// Language is a compiler/interpreter toolchain descriptor. Command is an
// argv sequence; element 0 is the program to invoke, and the tokens
// %INPUT%/%OUTPUT% are substituted at compile time.
type Language struct {
	Name     string   `json:"name"`
	FileName string   `json:"file_name"`
	Command  []string `json:"command"`
}

// User is a ⟨id, name⟩ pair. Names are globally unique; id 0 is the
// pre-seeded root user.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Contest is a time-boxed scope over a subset of problems and users. Id 0
// is the reserved implicit "global" contest and is never stored directly.
type Contest struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	ProblemIDs      []int     `json:"problem_ids"`
	UserIDs         []int     `json:"user_ids"`
	SubmissionLimit int       `json:"submission_limit"`
}

// Submission is the immutable input to a judging run.
type Submission struct {
	SourceCode string `json:"source_code"`
	Language   string `json:"language"`
	UserID     int    `json:"user_id"`
	ContestID  int    `json:"contest_id"`
	ProblemID  int    `json:"problem_id"`
}

// CaseResult is the outcome of one element of Job.Cases: either the
// synthetic compile-phase entry (id 0) or one real test case.
type CaseResult struct {
	ID      int     `json:"id"`
	Verdict Verdict `json:"result"`
	Time    int64   `json:"time"`   // microseconds
	Memory  int     `json:"memory"` // always 0; reserved
	Info    string  `json:"info,omitempty"`
}

// Job is a finalized (or in-flight) judging record.
type Job struct {
	ID          int          `json:"id"`
	CreatedTime time.Time    `json:"created_time"`
	UpdatedTime time.Time    `json:"updated_time"`
	Submission  Submission   `json:"submission"`
	State       JobState     `json:"state"`
	Result      Verdict      `json:"result"`
	Score       float64      `json:"score"`
	Cases       []CaseResult `json:"cases"`

	// ScoreVec is the per-case score contribution actually earned by this
	// job (0 for any case not Accepted), used by the ranking engine's
	// dynamic re-scoring step without re-deriving it from Cases/Problem.
	// Not part of the wire format.
	ScoreVec []float64 `json:"-"`
}

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"

// MarshalTimeRFC3339Milli renders t as RFC 3339 with millisecond precision
// in UTC, the timestamp format mandated for every wire-facing time field.
func MarshalTimeRFC3339Milli(t time.Time) string {
	return t.UTC().Format(rfc3339Milli)
}

func (j Job) MarshalJSON() ([]byte, error) {
	type alias Job
	return json.Marshal(struct {
		alias
		CreatedTime string `json:"created_time"`
		UpdatedTime string `json:"updated_time"`
	}{
		alias:       alias(j),
		CreatedTime: MarshalTimeRFC3339Milli(j.CreatedTime),
		UpdatedTime: MarshalTimeRFC3339Milli(j.UpdatedTime),
	})
}

func (c Contest) MarshalJSON() ([]byte, error) {
	type alias Contest
	return json.Marshal(struct {
		alias
		From string `json:"from"`
		To   string `json:"to"`
	}{
		alias: alias(c),
		From:  MarshalTimeRFC3339Milli(c.From),
		To:    MarshalTimeRFC3339Milli(c.To),
	})
}

// EqualTrimmedLines implements the `standard` comparison: split on
// newlines, strip trailing whitespace from each line, and require
// identical line counts and identical lines pairwise. Leading whitespace is
// deliberately preserved (see design notes on the open whitespace question).
func EqualTrimmedLines(got, want []byte) bool {
	gotLines := splitLines(got)
	wantLines := splitLines(want)
	if len(gotLines) != len(wantLines) {
		return false
	}
	for i := range gotLines {
		if !bytes.Equal(trimTrailingSpace(gotLines[i]), trimTrailingSpace(wantLines[i])) {
			return false
		}
	}
	return true
}

func splitLines(b []byte) [][]byte {
	b = bytes.TrimRight(b, "\n")
	if len(b) == 0 {
		return [][]byte{}
	}
	return bytes.Split(b, []byte("\n"))
}

func trimTrailingSpace(line []byte) []byte {
	return bytes.TrimRight(line, " \t\r")
}
