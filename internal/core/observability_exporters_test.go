package core

import (
	"bytes"
	"context"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"
)

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if recorder.Name() == "" {
		t.Fatalf("expected recorder to have export name")
	}
	recorder.Observe(context.Background(), "run_cmd", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "run_cmd", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Second)

	snapshot := recorder.Snapshot()
	if snapshot.DurationsMS["run_cmd"] <= 0 {
		t.Fatalf("expected positive duration, snapshot=%+v", snapshot)
	}
	if snapshot.Results["run_cmd"]["success"] != 1 || snapshot.Results["run_cmd"]["error"] != 1 {
		t.Fatalf("unexpected results snapshot=%+v", snapshot)
	}
	if _, ok := snapshot.Results[""]; ok {
		t.Fatalf("empty operation must be ignored")
	}
	snapshot.Results["run_cmd"]["success"] = 99
	if recorder.Snapshot().Results["run_cmd"]["success"] != 1 {
		t.Fatalf("snapshot shares state with recorder")
	}

	if v := expvar.Get(recorder.Name()); v == nil {
		t.Fatalf("expected expvar export to be registered")
	} else if !strings.Contains(v.String(), "run_cmd") {
		t.Fatalf("expected expvar output to contain operation: %s", v.String())
	}
}

func TestExpvarRecorderDrivenByManager(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	m := NewContentManager(WithMetricsRecorder(recorder))
	run(t, m, NewAddStroke(line(2, 0)))
	m.UndoCmd()
	got := recorder.Snapshot().Results
	if got["run_cmd"]["success"] != 1 || got["undo_cmd"]["success"] != 1 {
		t.Fatalf("unexpected results %+v", got)
	}
}

func TestJSONTraceTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "redo_cmd")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "redo_cmd")
	span.End(errors.New("stale"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected two span entries, got %d", len(entries))
	}
	if entries[0].Operation != "redo_cmd" || entries[0].Status != "success" {
		t.Fatalf("unexpected span entry: %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "stale" {
		t.Fatalf("unexpected failed span: %+v", entries[1])
	}
	if strings.Count(buf.String(), "\"operation\":\"redo_cmd\"") != 2 {
		t.Fatalf("expected JSON lines for both spans: %q", buf.String())
	}
}
