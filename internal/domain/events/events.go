package events

import (
	"github.com/kelindar/event"
	"github.com/rprigarin/test-driven-planner/internal/domain/entities"
)

// Event types
const (
	TaskChangeEventType uint32 = 1
	ModeChangeEventType uint32 = 2
)

// TaskChangeEventData wraps a change record for publishing
type TaskChangeEventData struct {
	Change *entities.ChangeRecord
}

// ModeChangeEventData announces a storage mode switch
type ModeChangeEventData struct {
	Mode   entities.StorageMode
	Reason string
}

// Type implements the Event interface
func (t TaskChangeEventData) Type() uint32 {
	return TaskChangeEventType
}

// Type implements the Event interface
func (m ModeChangeEventData) Type() uint32 {
	return ModeChangeEventType
}

// PublishTaskChange publishes a task change event
func PublishTaskChange(change *entities.ChangeRecord) {
	event.Emit(TaskChangeEventData{Change: change})
}

// SubscribeToTaskChanges subscribes to task change events
func SubscribeToTaskChanges(handler func(data TaskChangeEventData)) func() {
	return event.On(handler)
}

// PublishModeChange publishes a storage mode switch event
func PublishModeChange(mode entities.StorageMode, reason string) {
	event.Emit(ModeChangeEventData{Mode: mode, Reason: reason})
}

// SubscribeToModeChanges subscribes to storage mode switch events
func SubscribeToModeChanges(handler func(data ModeChangeEventData)) func() {
	return event.On(handler)
}
