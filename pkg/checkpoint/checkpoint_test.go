package checkpoint

import (
	"context"
	"testing"

	"github.com/daysim/daysim/pkg/config"
)

func TestFileStoreResumes(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(dir, "run-a")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.MarkDone(ctx, 3, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkDone(ctx, 7); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileStore(dir, "run-a")
	if err != nil {
		t.Fatal(err)
	}
	done, err := reopened.Completed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []int{1, 3, 7} {
		if !done[id] {
			t.Errorf("household %d not recorded", id)
		}
	}
	if len(done) != 3 {
		t.Errorf("completed = %v", done)
	}

	other, err := NewFileStore(dir, "run-b")
	if err != nil {
		t.Fatal(err)
	}
	if done, _ := other.Completed(ctx); len(done) != 0 {
		t.Errorf("run-b sees %v", done)
	}

	if err := reopened.Remove(); err != nil {
		t.Fatal(err)
	}
	fresh, _ := NewFileStore(dir, "run-a")
	if done, _ := fresh.Completed(ctx); len(done) != 0 {
		t.Errorf("removed checkpoint still has %v", done)
	}
}

func TestCompletedIsACopy(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "copy")
	if err != nil {
		t.Fatal(err)
	}
	done, _ := s.Completed(context.Background())
	done[99] = true
	if again, _ := s.Completed(context.Background()); again[99] {
		t.Error("Completed leaked the internal set")
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{"none", "none", false},
		{"", "none", false},
		{"file", "file", false},
		{"tape", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.Default().Checkpoint
			cfg.Backend = tt.backend
			cfg.Dir = t.TempDir()
			s, err := Open(cfg, "k")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if err == nil && s.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", s.Name(), tt.want)
			}
		})
	}
}

func TestParseMembers(t *testing.T) {
	done := parseMembers([]string{"4", "x", "10"})
	if len(done) != 2 || !done[4] || !done[10] {
		t.Errorf("parseMembers = %v", done)
	}
	if setKey("daysim:done:", "abc") != "daysim:done:abc" {
		t.Error("setKey")
	}
}
