package entities

import "fmt"

// InitCode describes the outcome of bringing up planner access: loading the
// configuration file and reaching the database. Zero means both succeeded.
type InitCode int

const (
	InitOK                  InitCode = 0
	InitFail                InitCode = -1
	InitDatabaseUnreachable InitCode = -2
	InitMissingConfig       InitCode = -3
	InitBadConfig           InitCode = -4
)

func (c InitCode) String() string {
	switch c {
	case InitOK:
		return "OK"
	case InitFail:
		return "FAIL"
	case InitDatabaseUnreachable:
		return "DATABASE_UNREACHABLE"
	case InitMissingConfig:
		return "MISSING_CONFIG"
	case InitBadConfig:
		return "BAD_CONFIG"
	default:
		return fmt.Sprintf("InitCode(%d)", int(c))
	}
}

// QueryCode describes the outcome of the most recent planner query.
type QueryCode int

const (
	QueryOK QueryCode = 0
	// QueryUnchanged marks idempotent no-ops: inserting a task that is
	// already stored, or deleting one that never was.
	QueryUnchanged         QueryCode = 1
	QueryFormatCheckFailed QueryCode = -1
	QueryUpdateFailed      QueryCode = -2
	QueryFailed            QueryCode = -3
)

func (c QueryCode) String() string {
	switch c {
	case QueryOK:
		return "OK"
	case QueryUnchanged:
		return "UNCHANGED"
	case QueryFormatCheckFailed:
		return "FORMAT_CHECK_FAILED"
	case QueryUpdateFailed:
		return "UPDATE_FAILED"
	case QueryFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("QueryCode(%d)", int(c))
	}
}

// StorageMode reports which store is serving planner queries.
type StorageMode string

const (
	ModeOnline  StorageMode = "online"
	ModeOffline StorageMode = "offline"
)
