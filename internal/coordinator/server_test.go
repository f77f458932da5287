package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/five82/grav1go/internal/config"
	"github.com/five82/grav1go/internal/project"
	"github.com/five82/grav1go/internal/registry"
	"github.com/five82/grav1go/internal/sceneplan"
)

type fakeDecoder struct{ frames uint64 }

func (f fakeDecoder) DecodeFrames(context.Context, config.EncoderKind, string) (uint64, error) {
	return f.frames, nil
}

func newTestServer(t *testing.T) (*Server, *registry.Registry, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	root := t.TempDir()

	reg, err := registry.New(root, sceneplan.Tools{}, fakeDecoder{frames: 30}, map[config.EncoderKind]string{config.EncoderAom: "1.0.0"}, nil)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	srv := New(reg, "secret", nil)
	return srv, reg, root
}

func addScene(t *testing.T, reg *registry.Registry, root, pid string) {
	t.Helper()
	src := filepath.Join(root, pid+"-src.mkv")
	if err := os.WriteFile(src, []byte("fake"), 0644); err != nil {
		t.Fatal(err)
	}
	ids, err := reg.AddProject(registry.AddProjectRequest{
		ID:         pid,
		InputPaths: []string{src},
		Encoder:    config.EncoderAom,
	})
	if err != nil {
		t.Fatalf("AddProject: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected one project id, got %v", ids)
	}

	p, ok := reg.Project(pid)
	if !ok {
		t.Fatalf("project %s not found after AddProject", pid)
	}
	p.Scenes["00000"] = &project.Scene{Segment: "00000", Start: 0, Frames: 30}
	p.Segments["00000"] = &project.Segment{Start: 0, Length: 30}
	p.InputFrames = 30
	if _, err := p.Start(context.Background(), "ffmpeg"); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestGetJobMissReturns404(t *testing.T) {
	srv, _, _ := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/get_job/"+url.PathEscape("[]"), nil)
	srv.Engine().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetJobHitSetsHeadersAndStreamsBody(t *testing.T) {
	srv, reg, root := newTestServer(t)
	addScene(t, reg, root, "p1")

	segPath := func() string {
		p, _ := reg.Project("p1")
		return p.SegmentPath("00000")
	}()
	if err := os.MkdirAll(filepath.Dir(segPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(segPath, []byte("segment bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/get_job/"+url.PathEscape("[]")+"?port=9001", nil)
	srv.Engine().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("projectid"); got != "p1" {
		t.Errorf("projectid header = %q, want p1", got)
	}
	if got := w.Header().Get("scene"); got != "00000" {
		t.Errorf("scene header = %q, want 00000", got)
	}
	if got := w.Header().Get("frames"); got != "30" {
		t.Errorf("frames header = %q, want 30", got)
	}
	if got := w.Header().Get("version"); got != "1.0.0" {
		t.Errorf("version header = %q, want 1.0.0 (the registry's detected aom version)", got)
	}
	if w.Body.String() != "segment bytes" {
		t.Errorf("body = %q, want segment bytes", w.Body.String())
	}
}

func TestGetGrainMissingTableReturns404(t *testing.T) {
	srv, reg, root := newTestServer(t)
	addScene(t, reg, root, "p1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/get_grain/p1/00000", nil)
	srv.Engine().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetGrainServesTableFile(t *testing.T) {
	srv, reg, root := newTestServer(t)
	addScene(t, reg, root, "p1")

	p, _ := reg.Project("p1")
	if err := os.MkdirAll(p.GrainDir(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p.GrainTablePath("00000"), []byte("grain table bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/get_grain/p1/00000", nil)
	srv.Engine().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "grain table bytes" {
		t.Errorf("body = %q, want grain table bytes", w.Body.String())
	}
}

func TestCancelJobRemovesWorker(t *testing.T) {
	srv, reg, root := newTestServer(t)
	addScene(t, reg, root, "p1")

	if _, ok := reg.GetJob(nil, "10.0.0.1:9001"); !ok {
		t.Fatal("expected a job to dispatch")
	}

	form := url.Values{"client": {"10.0.0.1:9001"}, "projectid": {"p1"}, "scene": {"00000"}}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cancel_job", bytes.NewBufferString(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Engine().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	p, _ := reg.Project("p1")
	if _, held := p.OpenJobs()["00000"].Workers["10.0.0.1:9001"]; held {
		t.Error("expected 10.0.0.1:9001 removed from job.Workers")
	}
}

func finishMultipart(t *testing.T, fields map[string]string, fileContent []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := mw.CreateFormFile("file", "scene.ivf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(fileContent); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestFinishJobSavedReturnsReasonSaved(t *testing.T) {
	srv, reg, root := newTestServer(t)
	addScene(t, reg, root, "p1")

	body, contentType := finishMultipart(t, map[string]string{
		"client":         "worker-a",
		"encoder":        "aom",
		"version":        "1.0.0",
		"encoder_params": "",
		"ffmpeg_params":  "",
		"projectid":      "p1",
		"scene":          "00000",
	}, bytes.Repeat([]byte{1}, 100))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/finish_job", body)
	req.Header.Set("Content-Type", contentType)
	srv.Engine().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != registry.ReasonSaved {
		t.Errorf("body = %q, want %q", w.Body.String(), registry.ReasonSaved)
	}

	_ = reg
}

func TestAddProjectRejectsWrongPassword(t *testing.T) {
	srv, _, root := newTestServer(t)
	src := filepath.Join(root, "in.mkv")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	payload, _ := json.Marshal(map[string]any{
		"password":    "wrong",
		"id":          "p1",
		"input_paths": []string{src},
		"encoder":     "aom",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/add_project", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	srv.Engine().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestAddProjectAcceptsCorrectPassword(t *testing.T) {
	srv, _, root := newTestServer(t)
	src := filepath.Join(root, "in.mkv")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	payload, _ := json.Marshal(map[string]any{
		"password":    "secret",
		"id":          "p1",
		"input_paths": []string{src},
		"encoder":     "aom",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/add_project", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	srv.Engine().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
}

func TestGetProjectsListsRegisteredProjects(t *testing.T) {
	srv, reg, root := newTestServer(t)
	addScene(t, reg, root, "p1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/get_projects", nil)
	srv.Engine().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got []registry.ProjectSummary
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("summaries = %+v, want one entry for p1", got)
	}
}
