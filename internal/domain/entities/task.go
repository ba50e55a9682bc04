package entities

import (
	"time"

	"github.com/google/uuid"
)

// Field names of the task query wire format.
const (
	TaskFieldDate = "date"
	TaskFieldDesc = "task_desc"
)

// Task is a single planned item: something to do on a particular day.
// Within one day descriptions are unique, so the (date, task_desc) pair
// identifies a task.
type Task struct {
	ID        string    `json:"id" bson:"_id"`
	Date      Date      `json:"date" bson:"date"`
	Desc      string    `json:"task_desc" bson:"task_desc"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func NewTask(date Date, desc string) *Task {
	now := time.Now()
	return &Task{
		ID:        uuid.New().String(),
		Date:      date,
		Desc:      desc,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Query returns the two-field query that identifies this task.
func (t *Task) Query() TaskQuery {
	return TaskQuery{Date: t.Date, Desc: t.Desc}
}

// TaskQuery is the caller-facing shape of a task: a day and a description,
// nothing else. Storage lookups match on both fields.
type TaskQuery struct {
	Date Date   `json:"date" bson:"date"`
	Desc string `json:"task_desc" bson:"task_desc"`
}

// Valid reports whether the query can be handed to storage: the date names
// a real calendar day and the description is not empty.
func (q TaskQuery) Valid() bool {
	return q.Date.Valid() && q.Desc != ""
}

func (q TaskQuery) Task() *Task {
	return NewTask(q.Date, q.Desc)
}

// ValidateTaskQueryFields checks the decoded JSON shape of a task query
// before it is bound to a TaskQuery: exactly two fields, named date and
// task_desc, both carrying strings. Values are not interpreted here, so a
// date that is well typed but names no real day still passes.
func ValidateTaskQueryFields(fields map[string]any) bool {
	if len(fields) != 2 {
		return false
	}
	if _, ok := fields[TaskFieldDate].(string); !ok {
		return false
	}
	if _, ok := fields[TaskFieldDesc].(string); !ok {
		return false
	}
	return true
}

// TaskQueryFromFields builds a TaskQuery from decoded JSON fields. The
// fields must already have passed ValidateTaskQueryFields.
func TaskQueryFromFields(fields map[string]any) (TaskQuery, error) {
	rawDate, _ := fields[TaskFieldDate].(string)
	desc, _ := fields[TaskFieldDesc].(string)
	date, err := ParseDate(rawDate)
	if err != nil {
		return TaskQuery{}, err
	}
	return TaskQuery{Date: date, Desc: desc}, nil
}
