package store

import "testing"

type fakeProblems struct{ ids map[int]bool }

func (f fakeProblems) HasProblem(id int) bool { return f.ids[id] }

type fakeUsers struct{ ids map[int]bool }

func (f fakeUsers) HasUser(id int) bool { return f.ids[id] }

func TestContestsCreateRejectsIDZero(t *testing.T) {
	contests := NewContests()
	id := 0
	_, err := contests.CreateOrUpdate(ContestInput{
		ID:   &id,
		From: "2026-01-01T00:00:00Z",
		To:   "2026-01-02T00:00:00Z",
	}, fakeProblems{}, fakeUsers{})
	if err == nil {
		t.Fatal("expected contest id 0 to be rejected")
	}
}

func TestContestsCreateAssignsSequentialIDs(t *testing.T) {
	contests := NewContests()
	problems := fakeProblems{ids: map[int]bool{1: true}}
	users := fakeUsers{ids: map[int]bool{0: true}}

	first, err := contests.CreateOrUpdate(ContestInput{
		From:       "2026-01-01T00:00:00Z",
		To:         "2026-01-02T00:00:00Z",
		ProblemIDs: []int{1},
		UserIDs:    []int{0},
	}, problems, users)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID != 1 {
		t.Fatalf("got id %d, want 1", first.ID)
	}

	second, err := contests.CreateOrUpdate(ContestInput{
		From: "2026-01-01T00:00:00Z",
		To:   "2026-01-02T00:00:00Z",
	}, problems, users)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.ID != 2 {
		t.Fatalf("got id %d, want 2", second.ID)
	}
}

func TestContestsCreateValidatesReferencedIDs(t *testing.T) {
	contests := NewContests()
	problems := fakeProblems{ids: map[int]bool{1: true}}
	users := fakeUsers{ids: map[int]bool{0: true}}

	_, err := contests.CreateOrUpdate(ContestInput{
		From:       "2026-01-01T00:00:00Z",
		To:         "2026-01-02T00:00:00Z",
		ProblemIDs: []int{99},
	}, problems, users)
	if err == nil {
		t.Fatal("expected unknown problem id to be rejected")
	}

	_, err = contests.CreateOrUpdate(ContestInput{
		From:    "2026-01-01T00:00:00Z",
		To:      "2026-01-02T00:00:00Z",
		UserIDs: []int{99},
	}, problems, users)
	if err == nil {
		t.Fatal("expected unknown user id to be rejected")
	}
}

func TestContestsCreateRejectsMalformedTimestamp(t *testing.T) {
	contests := NewContests()
	_, err := contests.CreateOrUpdate(ContestInput{
		From: "not-a-timestamp",
		To:   "2026-01-02T00:00:00Z",
	}, fakeProblems{}, fakeUsers{})
	if err == nil {
		t.Fatal("expected malformed 'from' timestamp to be rejected")
	}
}

func TestContestsSortsProblemAndUserIDs(t *testing.T) {
	contests := NewContests()
	problems := fakeProblems{ids: map[int]bool{1: true, 2: true, 3: true}}
	users := fakeUsers{ids: map[int]bool{0: true, 1: true}}

	c, err := contests.CreateOrUpdate(ContestInput{
		From:       "2026-01-01T00:00:00Z",
		To:         "2026-01-02T00:00:00Z",
		ProblemIDs: []int{3, 1, 2},
		UserIDs:    []int{1, 0},
	}, problems, users)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	wantP := []int{1, 2, 3}
	for i, p := range wantP {
		if c.ProblemIDs[i] != p {
			t.Fatalf("problem_ids not sorted: got %v", c.ProblemIDs)
		}
	}
	wantU := []int{0, 1}
	for i, u := range wantU {
		if c.UserIDs[i] != u {
			t.Fatalf("user_ids not sorted: got %v", c.UserIDs)
		}
	}
}

func TestContestsListOmitsGlobal(t *testing.T) {
	contests := NewContests()
	contests.CreateOrUpdate(ContestInput{
		From: "2026-01-01T00:00:00Z",
		To:   "2026-01-02T00:00:00Z",
	}, fakeProblems{}, fakeUsers{})

	for _, c := range contests.List() {
		if c.ID == 0 {
			t.Fatal("List() must never include contest id 0")
		}
	}
}

func TestContestsGetZeroReturnsGlobal(t *testing.T) {
	contests := NewContests()
	c, err := contests.Get(0)
	if err != nil {
		t.Fatalf("Get(0): %v", err)
	}
	if c.ID != 0 {
		t.Fatalf("got id %d, want 0", c.ID)
	}
}

func TestContestsGetUnknownNotFound(t *testing.T) {
	contests := NewContests()
	if _, err := contests.Get(42); err == nil {
		t.Fatal("expected not-found for unknown contest id")
	}
}

func TestContestsUpdateUnknownIDNotFound(t *testing.T) {
	contests := NewContests()
	id := 5
	_, err := contests.CreateOrUpdate(ContestInput{
		ID:   &id,
		From: "2026-01-01T00:00:00Z",
		To:   "2026-01-02T00:00:00Z",
	}, fakeProblems{}, fakeUsers{})
	if err == nil {
		t.Fatal("expected update of unknown contest id to fail")
	}
}
