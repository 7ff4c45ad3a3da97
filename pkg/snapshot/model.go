package snapshot

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/recur/pkg/cadence"
	"github.com/harrisonrobin/recur/pkg/model"
)

// Date is a calendar date. It decodes either "2006-01-02" or an RFC 3339
// timestamp, and always encodes as "2006-01-02".
type Date struct {
	time.Time
}

const dateLayout = time.DateOnly

// UnmarshalJSON implements the json.Unmarshaler interface for Date.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return fmt.Errorf("failed to parse due date '%s': %w", s, err)
	}
	d.Time = cadence.Date(t)
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Time.Format(dateLayout) + `"`), nil
}

type Task struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Notes  string `json:"notes,omitempty"`
	Due    *Date  `json:"due,omitempty"`
	Status string `json:"status"`
	Parent string `json:"parent,omitempty"`
}

type List struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Tasks []Task `json:"tasks"`
}

func (t Task) toModel() model.Task {
	out := model.Task{
		ID:     t.ID,
		Title:  t.Title,
		Notes:  t.Notes,
		Status: t.Status,
		Parent: t.Parent,
	}
	if out.Status == "" {
		out.Status = model.StatusNeedsAction
	}
	if t.Due != nil && !t.Due.IsZero() {
		d := t.Due.Time
		out.Due = &d
	}
	return out
}

func fromModel(t model.Task) Task {
	out := Task{
		ID:     t.ID,
		Title:  t.Title,
		Notes:  t.Notes,
		Status: t.Status,
		Parent: t.Parent,
	}
	if t.Due != nil {
		out.Due = &Date{Time: cadence.Date(*t.Due)}
	}
	return out
}
