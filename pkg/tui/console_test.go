package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	simerrors "github.com/daysim/daysim/pkg/errors"
	"github.com/daysim/daysim/pkg/scheduler"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1.5K"},
		{2500000, "2.5M"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.n); got != tt.want {
			t.Errorf("formatNumber(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{125 * time.Second, "2m5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		b    int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.b); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.b, got, tt.want)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	s := &scheduler.Summary{Simulated: 3, Exported: 2, Duration: time.Second}
	s.Counters.Trips = 1200
	for i := 0; i < 7; i++ {
		s.Faults = append(s.Faults, scheduler.Fault{HouseholdID: i, Code: simerrors.CodeTour, Err: errors.New("bad tour")})
	}

	var buf bytes.Buffer
	PrintSummary(&buf, s, map[string]int64{"trips": 1200}, nil)
	out := buf.String()
	for _, want := range []string{"7 FAULTED", "1.2K", "trips:", "... 2 more"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
