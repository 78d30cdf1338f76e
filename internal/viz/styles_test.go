package viz

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestSparklineChart(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}
	got := SparklineChart(values, 20)
	if n := utf8.RuneCountInString(got); n != 20 {
		t.Errorf("expected 20 runes, got %d (%q)", n, got)
	}
	if !strings.HasPrefix(got, "▁") || !strings.Contains(got, "▇") {
		t.Errorf("unexpected sparkline %q", got)
	}

	if got := SparklineChart(nil, 5); got != "─────" {
		t.Errorf("empty sparkline = %q", got)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent float64
		full    int
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{1.7, 10},
		{-1, 0},
	}
	for _, tt := range tests {
		bar := ProgressBar(tt.percent, 10)
		if n := strings.Count(bar, "█"); n != tt.full {
			t.Errorf("%v: %d filled, want %d", tt.percent, n, tt.full)
		}
		if n := utf8.RuneCountInString(bar); n != 10 {
			t.Errorf("%v: width %d", tt.percent, n)
		}
	}
}

func TestMetricsSorted(t *testing.T) {
	out := Metrics(map[string]float64{"stability": 1, "energy_drift": 2.5e-9})
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "energy_drift") || !strings.Contains(lines[0], "2.5e-09") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "stability") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestOutcome(t *testing.T) {
	for _, o := range []string{"completed", "canceled", "diverged"} {
		if got := Outcome(o); got != o {
			t.Errorf("plain render of %s = %q", o, got)
		}
	}
}
