package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	l := StdLogger(&buf)
	if err := l.Record(Event{Split: "train", Epoch: 1, Batch: 10, Batches: 20, Metrics: Metrics{Loss: 1.5, Accuracy: 0.25}}); err != nil {
		t.Fatal(err)
	}
	if err := l.Record(Event{Split: "valid", Metrics: Metrics{Loss: 2, Tokens: 40}}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Epoch  1,    10/   20") || !strings.Contains(out, "acc: 25.00%") {
		t.Errorf("Unexpected train line: %q", out)
	}
	if !strings.Contains(out, " * valid loss:  2.000") {
		t.Errorf("Unexpected valid line: %q", out)
	}
}

func TestVisdomLoggerPushes(t *testing.T) {
	var mu sync.Mutex
	paths := map[string]int{}
	var envs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body visdomLine
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		paths[r.URL.Path]++
		envs = append(envs, body.Env)
		mu.Unlock()
	}))
	defer srv.Close()

	v := NewVisdomLogger(srv.URL, "multitarget", "run", nil)
	for step := 1; step <= 2; step++ {
		if err := v.Record(Event{Split: "train", Step: step, Metrics: Metrics{Loss: 1}}); err != nil {
			t.Fatal(err)
		}
	}
	if paths["/events"] != 3 || paths["/update"] != 3 {
		t.Errorf("Expected 3 window creations and 3 updates, got %v", paths)
	}
	for _, e := range envs {
		if e != "multitarget" {
			t.Errorf("Expected env multitarget, got %q", e)
		}
	}
}

func TestVisdomLoggerDisablesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var warn bytes.Buffer
	v := NewVisdomLogger(srv.URL, "multitarget", "", &warn)
	for i := 0; i < 3; i++ {
		if err := v.Record(Event{Split: "valid"}); err != nil {
			t.Fatalf("Expected push failures to be swallowed, got %v", err)
		}
	}
	if n := strings.Count(warn.String(), "visdom logging disabled"); n != 1 {
		t.Errorf("Expected a single warning, got %d:\n%s", n, warn.String())
	}
}

func TestMetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	f := NewMetricsFile(path, "run-1", "general")
	for i := 1; i <= 2; i++ {
		if err := f.Record(Event{Split: "valid", Epoch: i, Metrics: Metrics{Loss: float64(i)}}); err != nil {
			t.Fatal(err)
		}
	}
	var got MetricsFile
	if err := loadJSON(path, &got); err != nil {
		t.Fatal(err)
	}
	if got.RunID != "run-1" || len(got.Events) != 2 || got.Events[1].Metrics.Loss != 2 {
		t.Errorf("Unexpected metrics file: %+v", got)
	}
}
