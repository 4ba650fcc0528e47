package core

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		rows   [][]string
		want   []Record
	}{
		{
			name:   "four columns",
			layout: LayoutFour,
			rows:   [][]string{{"1", "alice", "2024-01-01T10:00:00", "hi"}},
			want:   []Record{{ID: "1", User: "alice", RawTimestamp: "2024-01-01T10:00:00", Message: "hi", Channel: "general"}},
		},
		{
			name:   "five columns ignore attachment placeholder",
			layout: LayoutFive,
			rows:   [][]string{{"1", "alice", "2024-01-01T10:00:00", "hi", "https://cdn/x.png"}},
			want:   []Record{{ID: "1", User: "alice", RawTimestamp: "2024-01-01T10:00:00", Message: "hi", Channel: "general"}},
		},
		{
			name:   "wide rows take first four",
			layout: LayoutAuto,
			rows:   [][]string{{"1", "alice", "2024-01-01T10:00:00", "hi", "", "👍 (2)", "extra"}},
			want:   []Record{{ID: "1", User: "alice", RawTimestamp: "2024-01-01T10:00:00", Message: "hi", Channel: "general"}},
		},
		{
			name:   "fields are not trimmed",
			layout: LayoutAuto,
			rows:   [][]string{{" 1", "alice ", "2024-01-01T10:00:00", " hi "}},
			want:   []Record{{ID: " 1", User: "alice ", RawTimestamp: "2024-01-01T10:00:00", Message: " hi ", Channel: "general"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := SourceDescriptor{Locator: "a.csv", Channel: "general", Layout: tt.layout}
			got := Normalize(desc, tt.rows, 1)
			if diff := cmp.Diff(tt.want, got.Records); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
			if len(got.Skipped) != 0 {
				t.Errorf("unexpected skips: %v", got.Skipped)
			}
		})
	}
}

func TestNormalize_MalformedRowsDropped(t *testing.T) {
	rows := [][]string{
		{"1", "alice", "2024-01-01T10:00:00", "hi"},
		{"2", "bob", "2024-01-01T11:00:00"},
		{"3", "carol", "2024-01-01T12:00:00", "hey"},
	}
	desc := SourceDescriptor{Locator: "a.csv", Channel: "general"}

	got := Normalize(desc, rows, 2)

	if len(got.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(got.Records))
	}
	if got.Records[0].ID != "1" || got.Records[1].ID != "3" {
		t.Errorf("records = %v, want ids 1 and 3", got.Records)
	}
	if len(got.Skipped) != 1 {
		t.Fatalf("len(Skipped) = %d, want 1", len(got.Skipped))
	}

	skip := got.Skipped[0]
	if skip.Kind != SkipMalformedRow {
		t.Errorf("Kind = %q, want %q", skip.Kind, SkipMalformedRow)
	}
	if skip.Line != 3 {
		t.Errorf("Line = %d, want 3", skip.Line)
	}
	if diff := cmp.Diff([]int{2, 4}, got.Lines); diff != "" {
		t.Errorf("Lines (-want +got):\n%s", diff)
	}
	if skip.Source != "a.csv" || skip.Channel != "general" {
		t.Errorf("skip source/channel = %q/%q", skip.Source, skip.Channel)
	}
	if got.Report.Rows != 3 || got.Report.Records != 2 || got.Report.Malformed != 1 {
		t.Errorf("Report = %+v", got.Report)
	}
}

func TestNormalize_BlankRowsIgnored(t *testing.T) {
	rows := [][]string{
		{"", "", "", ""},
		{" ", "  "},
		{"1", "alice", "2024-01-01T10:00:00", "hi"},
	}
	got := Normalize(SourceDescriptor{Locator: "a.csv", Channel: "c"}, rows, 1)

	if len(got.Records) != 1 {
		t.Errorf("len(Records) = %d, want 1", len(got.Records))
	}
	if len(got.Skipped) != 0 {
		t.Errorf("blank rows should not be reported: %v", got.Skipped)
	}
}

func TestNormalize_IrregularWidthCounted(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	rows := [][]string{
		{"1", "alice", "2024-01-01T10:00:00", "hi", ""},
		{"2", "bob", "2024-01-01T10:00:00", "yo"},
		{"3", "carol", "2024-01-01T10:00:00", "hey", "", "reactions"},
	}
	got := Normalize(SourceDescriptor{Locator: "a.csv", Channel: "c", Layout: LayoutFive}, rows, 1)

	if len(got.Records) != 3 {
		t.Errorf("len(Records) = %d, want 3", len(got.Records))
	}
	if got.Report.Irregular != 2 {
		t.Errorf("Irregular = %d, want 2", got.Report.Irregular)
	}
	if !bytes.Contains(buf.Bytes(), []byte("row width differs")) {
		t.Errorf("expected debug log for irregular rows, got %s", buf.String())
	}
}

func TestParseLayout(t *testing.T) {
	tests := []struct {
		in      string
		want    Layout
		wantErr bool
	}{
		{"", LayoutAuto, false},
		{"auto", LayoutAuto, false},
		{"four", LayoutFour, false},
		{"4", LayoutFour, false},
		{"five", LayoutFive, false},
		{"5", LayoutFive, false},
		{"six", LayoutAuto, true},
	}

	for _, tt := range tests {
		got, err := ParseLayout(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLayout(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLayout(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if !tt.wantErr && tt.in != "" && tt.in != "4" && tt.in != "5" && got.String() != tt.in {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), tt.in)
		}
	}
}
