// Package judge implements the compile-then-execute judging pipeline: it
// writes a submission's source to a scratch directory, invokes the
// language's compiler, runs the resulting artifact against every test
// case under a per-case timeout, compares output, and scores the result.
//
// The subprocess-handling shape (exec.CommandContext, timeout via
// context.WithTimeout, argv substitution) follows
// internal/sandbox/isolate.go in the teacher; unlike the teacher, there is
// no isolate sandbox tool here — the spec's non-goals exclude memory
// isolation and privilege drop, so cases run as plain child processes with
// only a wall-clock timeout enforced.
package judge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/zhaozkTHU/oj/internal/models"
)

// ScratchDir is the single process-wide scratch directory. The design
// assumes at most one concurrent judge (enforced by the caller's mutex);
// finding it already present when a run starts is a system error.
const ScratchDir = "./TMPDIR"

// Result is the output of a judging run: the full case-result vector
// (index 0 is the synthetic compile phase) and the total score.
type Result struct {
	Cases    []models.CaseResult
	Score    float64
	ScoreVec []float64 // per-case score actually earned, 1:1 with problem.Cases
}

// SystemError is returned for failures that are not a judging outcome but
// an infrastructure problem (scratch dir collision, spawn failure) — these
// are fatal to the request, not a verdict.
type SystemError struct{ Err error }

func (e *SystemError) Error() string { return fmt.Sprintf("judge: system error: %v", e.Err) }
func (e *SystemError) Unwrap() error { return e.Err }

// Run executes the full pipeline for one submission against one problem.
func Run(ctx context.Context, source string, problem models.Problem, language models.Language) (Result, error) {
	if _, err := os.Stat(ScratchDir); err == nil {
		return Result{}, &SystemError{Err: fmt.Errorf("scratch directory %s already exists", ScratchDir)}
	}
	if err := os.Mkdir(ScratchDir, 0o755); err != nil {
		return Result{}, &SystemError{Err: err}
	}
	defer os.RemoveAll(ScratchDir)

	sourcePath := filepath.Join(ScratchDir, language.FileName)
	if err := os.WriteFile(sourcePath, []byte(source), 0o644); err != nil {
		return Result{}, &SystemError{Err: err}
	}

	artifactPath := filepath.Join(ScratchDir, "main")
	compileResult, compileTime, err := compile(ctx, language, sourcePath, artifactPath)
	if err != nil {
		return Result{}, &SystemError{Err: err}
	}

	cases := make([]models.CaseResult, 1+len(problem.Cases))
	scoreVec := make([]float64, len(problem.Cases))

	if !compileResult {
		cases[0] = models.CaseResult{ID: 0, Verdict: models.VerdictCompilationError, Time: compileTime}
		for i := range problem.Cases {
			cases[i+1] = models.CaseResult{ID: i + 1, Verdict: models.VerdictWaiting}
		}
		return Result{Cases: cases, Score: 0, ScoreVec: scoreVec}, nil
	}
	cases[0] = models.CaseResult{ID: 0, Verdict: models.VerdictCompilationSuccess, Time: compileTime}

	groupOf, indexInGroup := packingIndex(problem.Misc.Packing, len(problem.Cases))
	groupFailed := make(map[int]bool)

	for i, c := range problem.Cases {
		caseID := i + 1

		if g, packed := groupOf[i]; packed {
			if indexInGroup[i] > 0 && groupFailed[g] {
				cases[caseID] = models.CaseResult{ID: caseID, Verdict: models.VerdictSkipped}
				continue
			}
		}

		verdict, elapsed := runCase(ctx, artifactPath, c, problem.Type)
		cases[caseID] = models.CaseResult{ID: caseID, Verdict: verdict, Time: elapsed}

		if verdict != models.VerdictAccepted {
			if g, packed := groupOf[i]; packed {
				groupFailed[g] = true
			}
		} else {
			scoreVec[i] = c.Score
		}
	}

	score := scoreResult(problem, cases, groupOf)
	return Result{Cases: cases, Score: score, ScoreVec: scoreVec}, nil
}

// packingIndex maps each 0-based case index to its group number and its
// 0-based position within that group, for cases that are declared in a
// packing group. Cases outside any declared group are absent from both
// maps and are scored individually (judger.rs: packing applies per-case,
// not assumed for a problem's entire case list).
func packingIndex(packing [][]int, numCases int) (groupOf map[int]int, indexInGroup map[int]int) {
	groupOf = make(map[int]int)
	indexInGroup = make(map[int]int)
	for g, group := range packing {
		for pos, caseNum := range group {
			idx := caseNum - 1
			if idx < 0 || idx >= numCases {
				continue
			}
			groupOf[idx] = g
			indexInGroup[idx] = pos
		}
	}
	return
}

func scoreResult(problem models.Problem, cases []models.CaseResult, groupOf map[int]int) float64 {
	if len(problem.Misc.Packing) == 0 {
		var total float64
		for i, c := range problem.Cases {
			if cases[i+1].Verdict == models.VerdictAccepted {
				total += c.Score
			}
		}
		return total
	}

	groupScore := make(map[int]float64)
	groupOK := make(map[int]bool)
	groupSeen := make(map[int]bool)
	for i, c := range problem.Cases {
		g, packed := groupOf[i]
		if !packed {
			continue
		}
		if !groupSeen[g] {
			groupSeen[g] = true
			groupOK[g] = true
		}
		groupScore[g] += c.Score
		if cases[i+1].Verdict != models.VerdictAccepted {
			groupOK[g] = false
		}
	}

	var total float64
	for i, c := range problem.Cases {
		if _, packed := groupOf[i]; packed {
			continue
		}
		if cases[i+1].Verdict == models.VerdictAccepted {
			total += c.Score
		}
	}
	for g, ok := range groupOK {
		if ok {
			total += groupScore[g]
		}
	}
	return total
}

// compile substitutes %INPUT%/%OUTPUT% into the language's command argv
// and runs it with no timeout (per spec, compilation has none), returning
// whether it succeeded and the elapsed wall-clock time in microseconds.
func compile(ctx context.Context, language models.Language, sourcePath, artifactPath string) (bool, int64, error) {
	argv := substitute(language.Command, sourcePath, artifactPath)
	if len(argv) == 0 {
		return false, 0, fmt.Errorf("judge: empty compile command for language %q", language.Name)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Microseconds()

	if err == nil {
		return true, elapsed, nil
	}
	if _, ok := err.(*exec.ExitError); ok {
		return false, elapsed, nil
	}
	return false, elapsed, err
}

// runCase executes the compiled artifact against one case with its time
// limit enforced as a wall-clock timeout, comparing output per the
// problem's comparison mode.
func runCase(ctx context.Context, artifactPath string, c models.Case, problemType models.ProblemType) (models.Verdict, int64) {
	input, err := os.ReadFile(c.InputFile)
	if err != nil {
		return models.VerdictRuntimeError, 0
	}

	timeout := time.Duration(c.TimeLimit) * time.Microsecond
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, artifactPath)
	cmd.Stdin = bytes.NewReader(input)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start).Microseconds()

	if runCtx.Err() == context.DeadlineExceeded {
		return models.VerdictTimeLimitExceeded, 0
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return models.VerdictRuntimeError, elapsed
		}
		return models.VerdictRuntimeError, elapsed
	}

	outPath := filepath.Join(ScratchDir, "out")
	_ = os.WriteFile(outPath, stdout.Bytes(), 0o644)

	answer, err := os.ReadFile(c.AnswerFile)
	if err != nil {
		return models.VerdictRuntimeError, elapsed
	}

	var match bool
	if problemType == models.ProblemStrict {
		match = strictEqual(stdout.Bytes(), answer)
	} else {
		match = models.EqualTrimmedLines(stdout.Bytes(), answer)
	}
	if match {
		return models.VerdictAccepted, elapsed
	}
	return models.VerdictWrongAnswer, elapsed
}

// strictEqual implements the "strict" comparison: byte-exact file
// equality, no whitespace normalization.
func strictEqual(got, want []byte) bool {
	return bytes.Equal(got, want)
}

// AggregateResult derives a Job's overall verdict from its case-result
// vector: CompilationError if the compile phase failed; otherwise the
// first non-Accepted verdict among the real cases; otherwise Accepted.
func AggregateResult(cases []models.CaseResult) models.Verdict {
	if len(cases) == 0 {
		return models.VerdictSystemError
	}
	if cases[0].Verdict == models.VerdictCompilationError {
		return models.VerdictCompilationError
	}
	for _, c := range cases[1:] {
		if c.Verdict != models.VerdictAccepted {
			return c.Verdict
		}
	}
	return models.VerdictAccepted
}

func substitute(command []string, input, output string) []string {
	out := make([]string, len(command))
	for i, tok := range command {
		tok = strings.ReplaceAll(tok, "%INPUT%", input)
		tok = strings.ReplaceAll(tok, "%OUTPUT%", output)
		out[i] = tok
	}
	return out
}
