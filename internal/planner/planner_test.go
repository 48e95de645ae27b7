package planner

import (
	"reflect"
	"testing"
	"time"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/logger"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func plan(t *testing.T, spec string) []Month {
	t.Helper()
	return Plan(spec, testNow, logger.NewWithWriter(testWriter{t}))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestPlan_ExplicitMonths(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []Month
	}{
		{
			name: "single month",
			spec: "2024-01",
			want: []Month{{2024, 1}},
		},
		{
			name: "comma separated",
			spec: "2024-01,2024-02",
			want: []Month{{2024, 1}, {2024, 2}},
		},
		{
			name: "unsorted input with duplicates",
			spec: "2024-02,2024-01,2024-02",
			want: []Month{{2024, 1}, {2024, 2}},
		},
		{
			name: "malformed tokens skipped",
			spec: "2024-01,not-a-month,2024-13,2024-02",
			want: []Month{{2024, 1}, {2024, 2}},
		},
		{
			name: "whitespace tolerated",
			spec: " 2024-01 , 2024-02 ",
			want: []Month{{2024, 1}, {2024, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := plan(t, tt.spec)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Plan(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestPlan_Empty(t *testing.T) {
	if got := plan(t, ""); len(got) != 0 {
		t.Errorf("empty spec should plan nothing, got %v", got)
	}
	if got := plan(t, "   "); len(got) != 0 {
		t.Errorf("blank spec should plan nothing, got %v", got)
	}
}

func TestPlan_All(t *testing.T) {
	got := plan(t, "all")
	if len(got) == 0 {
		t.Fatal("all should produce months")
	}
	if got[0] != (Month{2020, 1}) {
		t.Errorf("first month = %v, want 2020-01", got[0])
	}
	last := got[len(got)-1]
	if last != (Month{2025, 3}) {
		t.Errorf("last month = %v, want current month 2025-03", last)
	}
	// 2020..2024 full years plus Jan-Mar 2025.
	if want := 5*12 + 3; len(got) != want {
		t.Errorf("got %d months, want %d", len(got), want)
	}
}

func TestPlan_LastNMonths(t *testing.T) {
	got := plan(t, "last_3_months")
	if len(got) == 0 || len(got) > 3 {
		t.Fatalf("last_3_months yielded %d months", len(got))
	}
	last := got[len(got)-1]
	if last != (Month{2025, 3}) {
		t.Errorf("most recent month = %v, want 2025-03", last)
	}
	// Ascending order.
	for i := 1; i < len(got); i++ {
		if !got[i-1].before(got[i]) {
			t.Errorf("plan not ascending: %v", got)
		}
	}
}

func TestPlan_LastNMonthsMalformed(t *testing.T) {
	if got := plan(t, "last_x_months"); len(got) != 0 {
		t.Errorf("malformed last_N_months should plan nothing, got %v", got)
	}
	if got := plan(t, "last_0_months"); len(got) != 0 {
		t.Errorf("zero months should plan nothing, got %v", got)
	}
}

func TestWindow(t *testing.T) {
	min, max := Window(testNow)
	if want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC); !min.Equal(want) {
		t.Errorf("window min = %v, want %v", min, want)
	}
	if want := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC); !max.Equal(want) {
		t.Errorf("window max = %v, want %v", max, want)
	}

	// Year rollover.
	_, max = Window(time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC))
	if want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC); !max.Equal(want) {
		t.Errorf("rollover window max = %v, want %v", max, want)
	}
}

func TestMonthString(t *testing.T) {
	if got := (Month{2024, 3}).String(); got != "2024-03" {
		t.Errorf("Month.String() = %q", got)
	}
}
