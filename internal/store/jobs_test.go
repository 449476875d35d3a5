package store

import (
	"testing"

	"github.com/zhaozkTHU/oj/internal/models"
)

func TestJobsAppendAssignsDenseMonotonicIDs(t *testing.T) {
	jobs := NewJobs()

	for i := 0; i < 5; i++ {
		id := jobs.Append(models.Job{})
		if id != i {
			t.Fatalf("append %d: got id %d, want %d", i, id, i)
		}
	}
	if jobs.NextID() != 5 {
		t.Fatalf("got NextID %d, want 5", jobs.NextID())
	}
}

func TestJobsGetUnknownID(t *testing.T) {
	jobs := NewJobs()
	jobs.Append(models.Job{})
	if _, ok := jobs.Get(5); ok {
		t.Fatal("expected lookup of out-of-range id to fail")
	}
	if _, ok := jobs.Get(-1); ok {
		t.Fatal("expected lookup of negative id to fail")
	}
}

func TestJobsReplacePreservesID(t *testing.T) {
	jobs := NewJobs()
	id := jobs.Append(models.Job{Score: 10})

	ok := jobs.Replace(id, models.Job{Score: 50})
	if !ok {
		t.Fatal("expected replace to succeed")
	}

	job, ok := jobs.Get(id)
	if !ok {
		t.Fatal("expected job to still exist after replace")
	}
	if job.ID != id {
		t.Fatalf("got id %d, want %d", job.ID, id)
	}
	if job.Score != 50 {
		t.Fatalf("got score %v, want 50", job.Score)
	}
}

func TestJobsSnapshotIsACopy(t *testing.T) {
	jobs := NewJobs()
	jobs.Append(models.Job{Score: 1})

	snap := jobs.Snapshot()
	snap[0].Score = 999

	job, _ := jobs.Get(0)
	if job.Score != 1 {
		t.Fatalf("mutating the snapshot leaked into the store: got %v", job.Score)
	}
}
