package snapshot

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/recur/pkg/model"
	"github.com/harrisonrobin/recur/pkg/reconcile"
)

const kitchen = `{
	"lists": [
		{
			"id": "home",
			"title": "Home",
			"tasks": [
				{"id": "p", "title": "Clean kitchen", "notes": "#weekly", "due": "2024-03-03", "status": "needsAction"},
				{"id": "a", "title": "A", "parent": "p", "status": "completed"},
				{"id": "b", "title": "B", "parent": "p", "status": "needsAction"},
				{"id": "rent", "title": "Pay rent", "notes": "#monthly", "due": "2024-01-15T00:00:00.000Z", "status": "completed"}
			]
		}
	]
}`

func TestParse(t *testing.T) {
	s, err := Parse(strings.NewReader(kitchen))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	lists, _ := s.ListTaskLists(context.Background())
	if len(lists) != 1 || lists[0].Title != "Home" {
		t.Fatalf("Expected the Home list, got %+v", lists)
	}

	tasks, err := s.ListTasks(context.Background(), "home")
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 4 {
		t.Fatalf("Expected 4 tasks, got %d", len(tasks))
	}
	expectedDue := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	if tasks[0].Due == nil || !tasks[0].Due.Equal(expectedDue) {
		t.Errorf("Expected Due %v, got %v", expectedDue, tasks[0].Due)
	}
	if tasks[3].Due == nil || !tasks[3].Due.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected RFC 3339 due to be accepted, got %v", tasks[3].Due)
	}
	if tasks[1].Due != nil {
		t.Errorf("Expected no due date, got %v", tasks[1].Due)
	}
}

func TestParseRejectsBadDate(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"lists":[{"id":"l","tasks":[{"id":"x","due":"soon"}]}]}`))
	if err == nil {
		t.Errorf("Expected an error for an invalid due date")
	}
}

func TestReconcileAgainstSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, []byte(kitchen), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	logger := log.New(io.Discard, "", 0)
	runner := &reconcile.Runner{Store: s, Logger: logger, Reconciler: reconcile.New(logger)}
	rep, err := runner.Run(context.Background(), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rep.OK() || rep.Applied() != 4 {
		t.Fatalf("Expected 4 successful writes, got %+v", rep.Lists[0])
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tasks, _ := reloaded.ListTasks(context.Background(), "home")
	byID := make(map[string]model.Task)
	for _, task := range tasks {
		byID[task.ID] = task
	}

	checkDue := func(id string, want string) {
		t.Helper()
		got := byID[id].Due
		if want == "" {
			if got != nil {
				t.Errorf("%s: expected no due date, got %v", id, got)
			}
			return
		}
		if got == nil || got.Format(time.DateOnly) != want {
			t.Errorf("%s: expected due %s, got %v", id, want, got)
		}
	}
	checkDue("p", "2024-03-10")
	checkDue("a", "")
	checkDue("b", "2024-03-03")
	checkDue("rent", "2024-02-15")

	if byID["a"].Status != model.StatusNeedsAction || byID["rent"].Status != model.StatusNeedsAction {
		t.Errorf("Expected a and rent to be reset, got %s and %s", byID["a"].Status, byID["rent"].Status)
	}
	if byID["b"].Parent != "p" || byID["p"].Notes != "#weekly" {
		t.Errorf("Expected parent links and notes to survive, got %+v and %+v", byID["b"], byID["p"])
	}
}

func TestUpdateUnknownTask(t *testing.T) {
	s, _ := Parse(strings.NewReader(kitchen))
	if _, err := s.UpdateTask(context.Background(), "home", model.Update{ID: "missing"}); err == nil {
		t.Errorf("Expected an error for an unknown task")
	}
	if _, err := s.UpdateTask(context.Background(), "nowhere", model.Update{ID: "p"}); err == nil {
		t.Errorf("Expected an error for an unknown list")
	}
	if err := s.Save(); err != nil {
		t.Errorf("Expected Save without changes to be a no-op, got %v", err)
	}
}

func TestNewAndEncode(t *testing.T) {
	due := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	s := New(
		[]model.TaskList{{ID: "l1", Title: "Chores"}, {ID: "l2", Title: "Empty"}},
		map[string][]model.Task{"l1": {{ID: "t", Title: "Budget", Notes: "#monthly", Due: &due, Status: model.StatusNeedsAction}}},
	)

	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"due": "2024-05-31"`) {
		t.Errorf("Expected date-only due in output, got %s", out)
	}
	if !strings.Contains(out, `"tasks": []`) {
		t.Errorf("Expected empty lists to encode an empty task array, got %s", out)
	}

	parsed, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed.Lists) != 2 || parsed.Lists[0].Tasks[0].Title != "Budget" {
		t.Errorf("Expected encoded snapshot to parse back, got %+v", parsed.Lists)
	}
}
