package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRunLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := openTestJournal(t)

	id, err := j.Begin(ctx, KindExtract, "maps")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := j.Item(ctx, id, "dust.bsp", nil); err != nil {
		t.Fatalf("Item: %v", err)
	}
	if err := j.Item(ctx, id, "broken.bsp", errors.New("header too short")); err != nil {
		t.Fatalf("Item: %v", err)
	}
	if err := j.Finish(ctx, id, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	runs, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs: got %d want 1", len(runs))
	}
	r := runs[0]
	if r.ID != id || r.Kind != KindExtract || r.Status != StatusPartial || r.Items != 2 || r.Failures != 1 {
		t.Fatalf("run: %+v", r)
	}
	if r.Finished.IsZero() || r.Detail != "maps" {
		t.Fatalf("run fields: %+v", r)
	}

	items, err := j.Items(ctx, id)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 2 || !items[0].OK || items[1].OK || items[1].Message != "header too short" {
		t.Fatalf("items: %+v", items)
	}
}

func TestFinishStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := openTestJournal(t)

	tests := []struct {
		name  string
		items []error
		fatal error
		want  string
	}{
		{"empty", nil, nil, StatusOK},
		{"all ok", []error{nil, nil}, nil, StatusOK},
		{"all failed", []error{errors.New("x")}, nil, StatusFailed},
		{"fatal", []error{nil}, errors.New("dial"), StatusFailed},
	}
	for _, tc := range tests {
		id, err := j.Begin(ctx, KindDeploy, tc.name)
		if err != nil {
			t.Fatalf("%s: Begin: %v", tc.name, err)
		}
		for _, e := range tc.items {
			if err := j.Item(ctx, id, "f", e); err != nil {
				t.Fatalf("%s: Item: %v", tc.name, err)
			}
		}
		if err := j.Finish(ctx, id, tc.fatal); err != nil {
			t.Fatalf("%s: Finish: %v", tc.name, err)
		}
		runs, err := j.Recent(ctx, 1)
		if err != nil {
			t.Fatalf("%s: Recent: %v", tc.name, err)
		}
		if runs[0].ID != id || runs[0].Status != tc.want {
			t.Errorf("%s: status got %q want %q", tc.name, runs[0].Status, tc.want)
		}
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := openTestJournal(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	j.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	var ids []string
	for _, kind := range []string{KindExtract, KindGenerate, KindDeploy} {
		id, err := j.Begin(ctx, kind, "")
		if err != nil {
			t.Fatalf("Begin: %v", err)
		}
		ids = append(ids, id)
	}
	runs, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Fatalf("order: %+v", runs)
	}
	if runs[0].Status != StatusRunning || !runs[0].Finished.IsZero() {
		t.Fatalf("unfinished run: %+v", runs[0])
	}
}

func TestFinishUnknownRun(t *testing.T) {
	t.Parallel()
	j := openTestJournal(t)
	if err := j.Finish(context.Background(), "nope", nil); !errors.Is(err, ErrUnknownRun) {
		t.Fatalf("expected ErrUnknownRun, got %v", err)
	}
}
