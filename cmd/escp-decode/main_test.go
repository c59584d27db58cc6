package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.prn")
	if err := os.WriteFile(path, []byte("\x1b@A\x0c"), 0o644); err != nil {
		t.Fatal(err)
	}

	var text bytes.Buffer
	if err := decodeFile(context.Background(), path, "text", &text); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(text.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), text.String())
	}
	if !strings.HasPrefix(lines[0], "00000000 ESCP") {
		t.Errorf("first line = %q", lines[0])
	}

	var out bytes.Buffer
	if err := decodeFile(context.Background(), path, "json", &out); err != nil {
		t.Fatal(err)
	}
	dec := json.NewDecoder(&out)
	var names []string
	for dec.More() {
		var cmd struct {
			Offset int64  `json:"offset"`
			Name   string `json:"name"`
		}
		if err := dec.Decode(&cmd); err != nil {
			t.Fatal(err)
		}
		names = append(names, cmd.Name)
	}
	if strings.Join(names, ",") != "init_printer,char,special" {
		t.Errorf("names = %v", names)
	}
}

func TestDecodeFileMissing(t *testing.T) {
	err := decodeFile(context.Background(), filepath.Join(t.TempDir(), "nope.prn"), "json", &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected an error for a missing capture")
	}
}

// TestRunExitCodes verifies output and log lines are flushed before run
// returns its exit code.
func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "capture.prn")
	if err := os.WriteFile(good, []byte("\x1b@"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{good}, &stdout, &stderr); code != 0 {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "init_printer") {
		t.Errorf("stdout = %q", stdout.String())
	}

	stdout.Reset()
	code := run([]string{good, filepath.Join(dir, "nope.prn")}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
	if !strings.Contains(stdout.String(), "init_printer") {
		t.Errorf("output of the readable capture was lost: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Decode failed") {
		t.Errorf("stderr = %q, want the failure logged", stderr.String())
	}

	if code := run([]string{"-f", "xml", good}, &stdout, &stderr); code != 2 {
		t.Errorf("run() with an unknown format = %d, want 2", code)
	}
}
