package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/config"
)

// fakeS3 records requests and answers like a bucket that exists.
type fakeS3 struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
}

func newFakeS3(t *testing.T) (*fakeS3, *MinioService) {
	t.Helper()
	f := &fakeS3{bodies: make(map[string]string)}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)

		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			f.bodies[r.URL.Path] = string(body)
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodHead:
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(server.Close)

	u, _ := url.Parse(server.URL)
	svc, err := NewMinioService(&config.MinioConfig{
		Endpoint:   u.Host,
		AccessKey:  "test",
		SecretKey:  "test-secret",
		Bucket:     "invoices",
		Region:     "us-east-1",
		ExpireDays: 7,
	})
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	return f, svc
}

func TestObjectName(t *testing.T) {
	got := ObjectName("operator", "run-1", "Issues_2024-03-04_2024-03-10.csv")
	if got != "operator/run-1/Issues_2024-03-04_2024-03-10.csv" {
		t.Errorf("Unexpected object name %s", got)
	}
}

func TestMinioServicePut(t *testing.T) {
	f, svc := newFakeS3(t)

	err := svc.Put(context.Background(), "operator/run-1/issues.csv", []byte("a,b\n"), "text/csv")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := f.bodies["/invoices/operator/run-1/issues.csv"]; !strings.Contains(got, "a,b") {
		t.Errorf("Expected object body to be uploaded, got %q", got)
	}
}

func TestMinioServiceEnsureBucket(t *testing.T) {
	f, svc := newFakeS3(t)

	if err := svc.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, r := range f.requests {
		if strings.HasPrefix(r, "PUT") {
			t.Errorf("Expected no bucket creation for an existing bucket, got %s", r)
		}
	}
}

func TestMinioServiceDelete(t *testing.T) {
	f, svc := newFakeS3(t)

	if err := svc.Delete(context.Background(), "operator/run-1/issues.csv"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(f.requests) == 0 || f.requests[len(f.requests)-1] != "DELETE /invoices/operator/run-1/issues.csv" {
		t.Errorf("Expected delete request, got %v", f.requests)
	}
}

func TestMinioServicePresignedURL(t *testing.T) {
	_, svc := newFakeS3(t)

	link, err := svc.PresignedURL(context.Background(), "operator/run-1/Cleaners_2024-03-04_2024-03-10.zip")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("Invalid URL: %v", err)
	}
	if u.Path != "/invoices/operator/run-1/Cleaners_2024-03-04_2024-03-10.zip" {
		t.Errorf("Unexpected path %s", u.Path)
	}
	q := u.Query()
	if q.Get("X-Amz-Expires") != "604800" {
		t.Errorf("Expected 7 day expiry, got %s", q.Get("X-Amz-Expires"))
	}
	if !strings.Contains(q.Get("response-content-disposition"), "Cleaners_2024-03-04_2024-03-10.zip") {
		t.Errorf("Expected download file name, got %s", q.Get("response-content-disposition"))
	}
}

func TestMinioServiceWithCancelledContext(t *testing.T) {
	_, svc := newFakeS3(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Put(ctx, "x", []byte("x"), "text/plain"); err == nil {
		t.Error("Expected error with cancelled context")
	}
}
