package punch

import "time"

// RawLog is a single tuple as reported by the terminal feed.
type RawLog struct {
	DeviceUserID string `json:"deviceUserId"`
	RecordTime   string `json:"recordTime"`
	IP           string `json:"ip"`
}

// PunchEvent is a stored terminal tap. PunchTime is organization-local civil
// time truncated to the second; (EmpID, PunchTime) is unique.
type PunchEvent struct {
	EmpID        string
	PunchTime    time.Time
	SourceIP     *string
	DeviceSerial string
}

type NormalizeResult struct {
	Events          []PunchEvent
	Received        int
	InvalidTime     int
	UnknownEmployee int
	Duplicates      int
}

type SyncReport struct {
	Fetched         int   `json:"fetched"`
	Accepted        int   `json:"accepted"`
	Inserted        int64 `json:"inserted"`
	InvalidTime     int   `json:"invalid_time"`
	UnknownEmployee int   `json:"unknown_employee"`
	Duplicates      int   `json:"duplicates"`
}
