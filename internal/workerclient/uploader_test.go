package workerclient

import (
	"context"
	"testing"

	"github.com/five82/grav1go/internal/config"
)

type scriptedUploader struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedUploader) FinishJob(_ context.Context, _ FinishRequest, _ string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i >= len(s.responses) {
		return s.responses[len(s.responses)-1], nil
	}
	return s.responses[i], nil
}

func testJob() *Job {
	return &Job{ProjectID: "p1", Scene: "00000", Encoder: config.EncoderAom, Frames: 10}
}

func TestUploadStopsImmediatelyOnTerminalReason(t *testing.T) {
	fake := &scriptedUploader{responses: []string{"saved"}}
	u := &Uploader{client: fake, badRetries: 3, otherRetries: 10}

	outcome := u.Upload(context.Background(), testJob(), "path")
	if outcome.Reason != "saved" {
		t.Fatalf("reason = %q, want saved", outcome.Reason)
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on a terminal reason)", fake.calls)
	}
}

func TestUploadRetriesBadUploadUpToBudget(t *testing.T) {
	fake := &scriptedUploader{responses: []string{"bad upload", "bad upload", "bad upload", "bad upload"}}
	u := &Uploader{client: fake, badRetries: 3, otherRetries: 10}

	outcome := u.Upload(context.Background(), testJob(), "path")
	if outcome.Reason != "bad upload" {
		t.Fatalf("reason = %q, want bad upload", outcome.Reason)
	}
	if fake.calls != 4 {
		t.Errorf("calls = %d, want 4 (initial attempt + 3 retries)", fake.calls)
	}
}

func TestUploadFatalEncoderVersionInvokesCallbackAndStops(t *testing.T) {
	fake := &scriptedUploader{responses: []string{"bad encoder version"}}
	var fatalReason string
	u := &Uploader{client: fake, badRetries: 3, otherRetries: 10, onFatal: func(r string) { fatalReason = r }}

	outcome := u.Upload(context.Background(), testJob(), "path")
	if outcome.Reason != "bad encoder version" {
		t.Fatalf("reason = %q", outcome.Reason)
	}
	if fatalReason != "bad encoder version" {
		t.Errorf("onFatal reason = %q, want bad encoder version", fatalReason)
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on a fatal reason)", fake.calls)
	}
}
