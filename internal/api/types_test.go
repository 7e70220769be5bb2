package api

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestampAcceptsBackendLayouts(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			// FastAPI emits naive datetimes without a zone designator.
			name: "naive with microseconds",
			raw:  `"2026-03-14T09:26:53.589793"`,
			want: time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC),
		},
		{
			name: "naive seconds only",
			raw:  `"2026-03-14T09:26:53"`,
			want: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		},
		{
			name: "rfc3339",
			raw:  `"2026-03-14T09:26:53Z"`,
			want: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tc.raw), &ts); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.raw, err)
			}
			if !ts.Equal(tc.want) {
				t.Fatalf("parsed %v, want %v", ts.Time, tc.want)
			}
		})
	}
}

func TestTimestampRejectsGarbage(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday-ish"`), &ts); err == nil {
		t.Fatal("expected an error for an unparseable timestamp")
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"uploads/my_bio_notes.pdf", "my bio notes"},
		{"/srv/data/Linear_Algebra.txt", "Linear Algebra"},
		{"plain.md", "plain"},
		{"", "Study Set"},
	}
	for _, tc := range cases {
		doc := Document{FilePath: tc.path}
		if got := doc.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusProcessing.Terminal() {
		t.Fatal("PROCESSING is not terminal")
	}
	for _, status := range []Status{StatusCompleted, StatusFailed, StatusCancelled} {
		if !status.Terminal() {
			t.Errorf("%s should be terminal", status)
		}
	}
}
