package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger receives trainer events.
type Logger interface {
	Record(ev Event) error
}

type stdLogger struct {
	w io.Writer
}

// StdLogger prints one line per event.
func StdLogger(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &stdLogger{w: w}
}

func (l *stdLogger) Record(ev Event) error {
	m := ev.Metrics
	switch ev.Split {
	case "train":
		_, err := fmt.Fprintf(l.w, "Epoch %2d, %5d/%5d; loss: %6.3f; ppl: %8.2f; acc: %5.2f%%; lr: %.5f; %.0fs elapsed\n",
			ev.Epoch, ev.Batch, ev.Batches, m.Loss, m.Perplexity(), 100*m.Accuracy, ev.LR, ev.Elapsed.Seconds())
		return err
	default:
		_, err := fmt.Fprintf(l.w, " * %s loss: %6.3f; ppl: %8.2f; acc: %5.2f%% (%d tokens)\n",
			ev.Split, m.Loss, m.Perplexity(), 100*m.Accuracy, m.Tokens)
		return err
	}
}

// VisdomLogger pushes loss and perplexity curves to a Visdom server. The
// first failed push is reported on warn and disables the logger, so an
// unreachable dashboard never interrupts training.
type VisdomLogger struct {
	server  string
	env     string
	runID   string
	client  *http.Client
	warn    io.Writer
	windows map[string]bool
	broken  bool
}

func NewVisdomLogger(server, env, runID string, warn io.Writer) *VisdomLogger {
	if runID == "" {
		runID = uuid.New().String()
	}
	if warn == nil {
		warn = os.Stderr
	}
	return &VisdomLogger{
		server:  strings.TrimRight(server, "/"),
		env:     env,
		runID:   runID,
		client:  &http.Client{Timeout: 5 * time.Second},
		warn:    warn,
		windows: make(map[string]bool),
	}
}

type visdomTrace struct {
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
	Name string    `json:"name"`
	Type string    `json:"type,omitempty"`
	Mode string    `json:"mode,omitempty"`
}

type visdomLine struct {
	Env    string                 `json:"eid"`
	Win    string                 `json:"win"`
	Data   []visdomTrace          `json:"data"`
	Layout map[string]interface{} `json:"layout,omitempty"`
	Opts   map[string]interface{} `json:"opts,omitempty"`
	Append bool                   `json:"append,omitempty"`
	Name   string                 `json:"name,omitempty"`
}

func (v *VisdomLogger) post(path string, body interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := v.client.Post(v.server+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("visdom %s: %s", path, resp.Status)
	}
	return nil
}

func (v *VisdomLogger) push(metric, split string, x, y float64) error {
	win := v.runID + "-" + metric
	trace := visdomTrace{X: []float64{x}, Y: []float64{y}, Name: split, Type: "scatter", Mode: "lines"}
	if !v.windows[win] {
		v.windows[win] = true
		return v.post("/events", visdomLine{
			Env:    v.env,
			Win:    win,
			Data:   []visdomTrace{trace},
			Layout: map[string]interface{}{"title": metric, "showlegend": true},
			Opts:   map[string]interface{}{"title": metric},
		})
	}
	return v.post("/update", visdomLine{Env: v.env, Win: win, Data: []visdomTrace{trace}, Append: true, Name: split})
}

func (v *VisdomLogger) Record(ev Event) error {
	if v.broken || ev.Split == "test" {
		return nil
	}
	x := float64(ev.Step)
	for _, p := range []struct {
		metric string
		y      float64
	}{
		{"loss", ev.Metrics.Loss},
		{"perplexity", ev.Metrics.Perplexity()},
		{"accuracy", ev.Metrics.Accuracy},
	} {
		if err := v.push(p.metric, ev.Split, x, p.y); err != nil {
			fmt.Fprintf(v.warn, "warning: visdom logging disabled: %v\n", err)
			v.broken = true
			return nil
		}
	}
	return nil
}

// MetricsFile keeps the event history and rewrites it as indented JSON after
// every record.
type MetricsFile struct {
	path   string
	RunID  string  `json:"run_id"`
	Phase  string  `json:"phase"`
	Events []Event `json:"events"`
}

func NewMetricsFile(path, runID, phase string) *MetricsFile {
	return &MetricsFile{path: path, RunID: runID, Phase: phase}
}

func (f *MetricsFile) Record(ev Event) error {
	f.Events = append(f.Events, ev)
	return saveJSON(f.path, f)
}
