package ent

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const dustText = "{\n\"classname\" \"worldspawn\"\n\"message\" \"Dust\"\n}\n" +
	"{\n\"classname\" \"info_team_start\"\n\"message\" \"Allies\"\n\"nextmap\" \"oldmap\"\n}"

func TestSummarizeExample(t *testing.T) {
	t.Parallel()

	got := Summarize(dustText)
	want := Summary{MapName: "Dust", AlliesNext: "oldmap", AxisNext: NotAvailable}
	if got != want {
		t.Fatalf("summary: got %+v want %+v", got, want)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want Summary
	}{
		{
			name: "empty",
			text: "",
			want: Unavailable(),
		},
		{
			name: "worldspawn without message",
			text: `{ "classname" "worldspawn" "sky" "unit1_" }`,
			want: Unavailable(),
		},
		{
			name: "both teams",
			text: `{"classname" "info_team_start" "message" "AXIS" "nextmap" "snow"}` +
				`{"classname" "info_team_start" "message" "allies" "nextmap" "port"}`,
			want: Summary{MapName: NotAvailable, AlliesNext: "port", AxisNext: "snow"},
		},
		{
			name: "team without nextmap",
			text: `{"classname" "info_team_start" "message" "axis"}`,
			want: Unavailable(),
		},
		{
			name: "unknown team ignored",
			text: `{"classname" "info_team_start" "message" "spectators" "nextmap" "x"}`,
			want: Unavailable(),
		},
		{
			name: "last worldspawn wins",
			text: `{"classname" "worldspawn" "message" "First"}{"classname" "worldspawn" "message" "Second"}`,
			want: Summary{MapName: "Second", AlliesNext: NotAvailable, AxisNext: NotAvailable},
		},
		{
			name: "later worldspawn without message resets",
			text: `{"classname" "worldspawn" "message" "First"}{"classname" "worldspawn"}`,
			want: Unavailable(),
		},
		{
			name: "duplicate key last write wins",
			text: `{"classname" "worldspawn" "message" "a" "message" "b"}`,
			want: Summary{MapName: "b", AlliesNext: NotAvailable, AxisNext: NotAvailable},
		},
		{
			name: "classname is case sensitive",
			text: `{"classname" "Worldspawn" "message" "x"}`,
			want: Unavailable(),
		},
	}
	for _, tc := range tests {
		if got := Summarize(tc.text); got != tc.want {
			t.Errorf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
	}
}

func TestReadSummary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "dust.ent")
	if err := os.WriteFile(path, []byte(dustText), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadSummary(path)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if got.MapName != "Dust" || got.AlliesNext != "oldmap" {
		t.Fatalf("summary: got %+v", got)
	}
}

func TestReadSummaryUnreadable(t *testing.T) {
	t.Parallel()

	got, err := ReadSummary(filepath.Join(t.TempDir(), "missing.ent"))
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
	if got != Failed() {
		t.Fatalf("summary: got %+v want %+v", got, Failed())
	}
	if got.MapName == NotAvailable {
		t.Fatalf("unreadable source must not look like an absent field")
	}
}
