package s3

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	simerrors "github.com/daysim/daysim/pkg/errors"
	"github.com/daysim/daysim/pkg/resilience"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	fail    bool
	flaky   int // puts that fail before one succeeds
	calls   int
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("access denied")
	}
	if f.flaky > 0 {
		f.flaky--
		return nil, errors.New("slow down")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestUploadAll(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "trips.parquet", "PAR1"),
		writeFile(t, dir, "report.xlsx", "PK"),
	}
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	cfg := DefaultConfig("sim-out", "eu-west-1")
	cfg.Prefix = "runs"
	u := newUploader(cfg, fake)

	keys, err := u.UploadAll(context.Background(), "r1", files)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "runs/r1/trips.parquet" {
		t.Fatalf("keys = %v", keys)
	}
	if string(fake.objects["sim-out/runs/r1/trips.parquet"]) != "PAR1" {
		t.Errorf("objects = %v", fake.objects)
	}
	if fake.types["sim-out/runs/r1/report.xlsx"] != contentType("report.xlsx") {
		t.Errorf("content type = %q", fake.types["sim-out/runs/r1/report.xlsx"])
	}
	if u.URI(keys[0]) != "s3://sim-out/runs/r1/trips.parquet" {
		t.Errorf("URI = %s", u.URI(keys[0]))
	}
}

func fastRetry(cfg Config) Config {
	cfg.Retry = resilience.Backoff{Attempts: 3, Initial: time.Millisecond, Multiplier: 1}
	return cfg
}

func TestUploadFailure(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeS3{fail: true}
	u := newUploader(fastRetry(DefaultConfig("b", "")), fake)

	_, err := u.Upload(context.Background(), "r", writeFile(t, dir, "x.parquet", "x"))
	if !simerrors.IsCode(err, simerrors.CodeUpload) {
		t.Errorf("err = %v", err)
	}
	if fake.calls != 3 {
		t.Errorf("put attempts = %d, want 3", fake.calls)
	}

	fake.calls = 0
	_, err = u.Upload(context.Background(), "r", filepath.Join(dir, "missing"))
	if !simerrors.IsCode(err, simerrors.CodeUpload) {
		t.Errorf("missing file err = %v", err)
	}
	if fake.calls != 0 {
		t.Errorf("missing file was put %d times", fake.calls)
	}
}

func TestUploadRetriesTransientFailures(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}, flaky: 2}
	u := newUploader(fastRetry(DefaultConfig("b", "")), fake)

	key, err := u.Upload(context.Background(), "r", writeFile(t, dir, "trips.parquet", "PAR1"))
	if err != nil {
		t.Fatal(err)
	}
	if fake.calls != 3 || string(fake.objects["b/"+key]) != "PAR1" {
		t.Errorf("calls = %d, objects = %v", fake.calls, fake.objects)
	}
}
