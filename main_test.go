package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/recur/pkg/reconcile"
	"github.com/harrisonrobin/recur/pkg/snapshot"
	"gopkg.in/yaml.v3"
)

const rentSnapshot = `{"lists":[{"id":"home","title":"Home","tasks":[
	{"id":"rent","title":"Pay rent","notes":"#monthly","due":"2024-01-15","status":"completed"}
]}]}`

func dryRun(t *testing.T) *reconcile.RunReport {
	t.Helper()
	store, err := snapshot.Parse(strings.NewReader(rentSnapshot))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	runner := &reconcile.Runner{Store: store, Logger: logger, Reconciler: reconcile.New(logger), DryRun: true}
	rep, err := runner.Run(context.Background(), time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return rep
}

func TestPrintPlansText(t *testing.T) {
	var buf bytes.Buffer
	if err := printPlans(&buf, dryRun(t)); err != nil {
		t.Fatalf("printPlans: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Home (1 updates)") || !strings.Contains(out, "due=2024-02-15") {
		t.Errorf("Unexpected plan output: %s", out)
	}
}

func TestPrintPlansJSON(t *testing.T) {
	flagJSON = true
	defer func() { flagJSON = false }()

	var buf bytes.Buffer
	if err := printPlans(&buf, dryRun(t)); err != nil {
		t.Fatalf("printPlans: %v", err)
	}
	var out planOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Today != "2024-01-20" || len(out.Lists) != 1 || len(out.Lists[0].Writes) != 1 {
		t.Fatalf("Unexpected plan: %+v", out)
	}
	if w := out.Lists[0].Writes[0]; w.Action != reconcile.ResetParent || w.Update.Status != "needsAction" {
		t.Errorf("Expected reset-parent to needsAction, got %+v", w)
	}
}

func TestPrintPlansYAML(t *testing.T) {
	flagYAML = true
	defer func() { flagYAML = false }()

	var buf bytes.Buffer
	if err := printPlans(&buf, dryRun(t)); err != nil {
		t.Fatalf("printPlans: %v", err)
	}
	var out map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out["today"] != "2024-01-20" {
		t.Errorf("Expected today 2024-01-20, got %v", out["today"])
	}
}

func TestResolveToday(t *testing.T) {
	flagToday = "2024-03-10"
	defer func() { flagToday = "" }()

	got, err := resolveToday()
	if err != nil {
		t.Fatalf("resolveToday: %v", err)
	}
	if !got.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected 2024-03-10, got %v", got)
	}

	flagToday = "10/03/2024"
	if _, err := resolveToday(); err == nil {
		t.Errorf("Expected an error for a malformed date")
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, dryRun(t))
	if !strings.Contains(buf.String(), "(dry run)") || !strings.Contains(buf.String(), "planned 1, applied 0") {
		t.Errorf("Unexpected summary: %s", buf.String())
	}
}
