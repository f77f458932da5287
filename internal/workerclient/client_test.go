package workerclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchGrainTableWritesResponseBodyToDestPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/get_grain/p1/00000" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte("grain table bytes"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "worker-1")
	dest := filepath.Join(t.TempDir(), "00000.table")
	if err := c.FetchGrainTable(context.Background(), "p1", "00000", dest); err != nil {
		t.Fatalf("FetchGrainTable: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(got) != "grain table bytes" {
		t.Errorf("dest contents = %q, want grain table bytes", got)
	}
}

func TestFetchGrainTableMissingReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "worker-1")
	err := c.FetchGrainTable(context.Background(), "p1", "00000", filepath.Join(t.TempDir(), "00000.table"))
	if err == nil {
		t.Fatal("expected an error on a 404 response")
	}
}

func TestCancelJobPostsExpectedFormFields(t *testing.T) {
	var gotClient, gotPID, gotScene string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		gotClient = r.FormValue("client")
		gotPID = r.FormValue("projectid")
		gotScene = r.FormValue("scene")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "worker-1")
	if err := c.CancelJob(context.Background(), "worker-1", "p1", "00000"); err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if gotClient != "worker-1" || gotPID != "p1" || gotScene != "00000" {
		t.Errorf("form fields = (%q, %q, %q), want (worker-1, p1, 00000)", gotClient, gotPID, gotScene)
	}
}
