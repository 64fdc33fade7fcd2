package genapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dreambatch/pkg/genapi"
)

func TestClient_Generate_SendsWireRequest(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Write([]byte(`{"data":[{"url":"https://cdn.example/a"}]}`))
	}))
	defer srv.Close()

	client := genapi.NewClient(srv.URL, 5*time.Second)
	res := client.Generate(context.Background(), genapi.Request{
		Model:      "jimeng-4.0",
		Prompt:     "a cat",
		Ratio:      "1:1",
		Resolution: "2k",
		Credential: "tok123",
	})

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if gotAuth != "Bearer sg-tok123" {
		t.Fatalf("wrong auth header: %s", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Fatalf("wrong content type: %s", gotContentType)
	}
	want := map[string]string{"model": "jimeng-4.0", "prompt": "a cat", "ratio": "1:1", "resolution": "2k"}
	for k, v := range want {
		if gotBody[k] != v {
			t.Fatalf("body field %s: expected %s, got %s", k, v, gotBody[k])
		}
	}
}

func TestClient_Generate_TransportErrorInResult(t *testing.T) {
	// Point at a closed server so the dial fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := genapi.NewClient(srv.URL, time.Second)
	res := client.Generate(context.Background(), genapi.Request{Prompt: "x", Credential: "c"})
	if res.Err == nil {
		t.Fatal("expected transport error")
	}
}

func TestClient_Generate_ErrorStatusPassedThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	client := genapi.NewClient(srv.URL, time.Second)
	res := client.Generate(context.Background(), genapi.Request{Prompt: "x", Credential: "c"})
	if res.Err != nil {
		t.Fatalf("HTTP error status is not a transport error: %v", res.Err)
	}
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.StatusCode)
	}
	if string(res.Body) != "upstream down" {
		t.Fatalf("body not passed through: %q", res.Body)
	}
}

func TestHTTPDownloader_WritesAndOverwrites(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("imagebytes"))
	}))
	defer srv.Close()

	savePath := filepath.Join(t.TempDir(), "nested", "dir", "image_1.jpeg")
	dl := genapi.NewDownloader(time.Second)

	if err := dl.Download(context.Background(), srv.URL, savePath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(savePath)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "imagebytes" {
		t.Fatalf("wrong content: %q", data)
	}

	// Pre-existing files are overwritten, not appended.
	if err := dl.Download(context.Background(), srv.URL, savePath); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	data, _ = os.ReadFile(savePath)
	if string(data) != "imagebytes" {
		t.Fatalf("overwrite produced wrong content: %q", data)
	}
}

func TestHTTPDownloader_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dl := genapi.NewDownloader(time.Second)
	err := dl.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x.jpeg"))
	if err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestExtensionFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example/img/123?format=png&sig=abc", ".png"},
		{"https://cdn.example/img/123?format=.webp", ".webp"},
		{"https://cdn.example/img/123?sig=abc", ".jpeg"},
		{"https://cdn.example/img/123", ".jpeg"},
		{"://not a url", ".jpeg"},
		// Hints that are not a plain extension must never reach a path.
		{"https://cdn.example/img/123?format=/../../../../tmp/evil", ".jpeg"},
		{"https://cdn.example/img/123?format=png%2F..%2F..", ".jpeg"},
		{"https://cdn.example/img/123?format=..", ".jpeg"},
		{"https://cdn.example/img/123?format=p.n.g", ".jpeg"},
		{"https://cdn.example/img/123?format=verylongformat", ".jpeg"},
	}
	for _, tt := range tests {
		if got := genapi.ExtensionFromURL(tt.url); got != tt.want {
			t.Fatalf("%s: expected %s, got %s", tt.url, tt.want, got)
		}
	}
}
