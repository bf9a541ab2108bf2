package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearClientEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BILLING_ENDPOINT", "BILLING_API_KEY", "BILLING_OUTPUT_DIR", "BILLING_COURIERS",
		"ARCHIVE_ENABLED", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestRunSavesArtifact(t *testing.T) {
	clearClientEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload/franch" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "priced")
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := filepath.Join(dir, "shipments.xlsx")
	if err := os.WriteFile(input, []byte("input"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out")

	var stdout, stderr bytes.Buffer
	args := []string{"-file", input, "-courier", "franch", "-out", out, "-endpoint", srv.URL}
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v, stderr %s", err, stderr.String())
	}

	got, err := os.ReadFile(filepath.Join(out, "franch_billing_output.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "priced" {
		t.Errorf("artifact = %q", got)
	}
	if !strings.Contains(stdout.String(), "[success] File processed successfully.") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunWithoutFile(t *testing.T) {
	clearClientEnv(t)

	var stdout, stderr bytes.Buffer
	args := []string{"-courier", "franch", "-out", t.TempDir(), "-endpoint", "http://127.0.0.1:1"}
	if err := run(context.Background(), args, &stdout, &stderr); err == nil {
		t.Fatal("run() expected error")
	}
	if !strings.Contains(stdout.String(), "[error] Please select a file.") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunServerError(t *testing.T) {
	clearClientEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"Unknown courier: dhl"}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := filepath.Join(dir, "in.xlsx")
	os.WriteFile(input, []byte("x"), 0o644)

	var stdout, stderr bytes.Buffer
	args := []string{"-file", input, "-courier", "dhl", "-out", dir, "-endpoint", srv.URL}
	if err := run(context.Background(), args, &stdout, &stderr); err == nil {
		t.Fatal("run() expected error")
	}
	if !strings.Contains(stdout.String(), "[error] Unknown courier: dhl") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "dhl_billing_output.xlsx")); !os.IsNotExist(err) {
		t.Error("artifact written for failed upload")
	}
}

func TestRunInvalidEndpoint(t *testing.T) {
	clearClientEnv(t)

	var stdout, stderr bytes.Buffer
	args := []string{"-courier", "franch", "-endpoint", "ftp://example.com"}
	if err := run(context.Background(), args, &stdout, &stderr); err == nil {
		t.Fatal("run() expected error")
	}
	if !strings.Contains(stderr.String(), "BILLING_ENDPOINT") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
