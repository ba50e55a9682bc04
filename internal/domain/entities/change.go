package entities

import (
	"time"

	"github.com/google/uuid"
)

// ChangeOp names a mutation recorded in the planner's change history.
type ChangeOp string

const (
	ChangeInsert   ChangeOp = "insert"
	ChangeUpdate   ChangeOp = "update"
	ChangeDelete   ChangeOp = "delete"
	ChangeClearDay ChangeOp = "clear_day"
)

// ChangeRecord is one immutable entry in the planner's change history.
// Update records additionally carry the replacement query and a unified
// diff of the description; clear_day records carry the removed count.
type ChangeRecord struct {
	ID        string    `json:"id" bson:"_id"`
	Op        ChangeOp  `json:"op" bson:"op"`
	Date      Date      `json:"date" bson:"date"`
	Desc      string    `json:"task_desc,omitempty" bson:"task_desc,omitempty"`
	NewDate   *Date     `json:"new_date,omitempty" bson:"new_date,omitempty"`
	NewDesc   string    `json:"new_task_desc,omitempty" bson:"new_task_desc,omitempty"`
	Diff      string    `json:"diff,omitempty" bson:"diff,omitempty"`
	Removed   int64     `json:"removed,omitempty" bson:"removed,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

func NewChangeRecord(op ChangeOp, date Date, desc string) *ChangeRecord {
	return &ChangeRecord{
		ID:        uuid.New().String(),
		Op:        op,
		Date:      date,
		Desc:      desc,
		Timestamp: time.Now(),
	}
}
