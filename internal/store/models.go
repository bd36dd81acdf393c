package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// timeLayout is the RFC3339 layout used for persisted timestamps.
// Fixed-width fractional seconds keep the text form lexically sortable,
// which the last_occurred / timestamp orderings rely on.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nowStamp() string {
	return time.Now().UTC().Format(timeLayout)
}

// ErrorGroup is one deduplicated error class: all occurrences sharing a
// fingerprint (while unresolved) collapse into a single group whose
// counters track the running total and time span.
type ErrorGroup struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Fingerprint string `gorm:"index:idx_errors_fingerprint;size:32;not null" json:"fingerprint"`
	Category    string `gorm:"index:idx_errors_category;not null" json:"category"`

	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`

	FirstOccurred string `gorm:"not null" json:"first_occurred"`
	LastOccurred  string `gorm:"not null" json:"last_occurred"`

	OccurrenceCount int64 `gorm:"not null;default:1" json:"occurrence_count"`

	Resolved        bool    `gorm:"index:idx_errors_resolved;not null;default:false" json:"resolved"`
	ResolutionNotes *string `json:"resolution_notes"`

	CreatedAt time.Time `json:"created_at"`
}

func (ErrorGroup) TableName() string { return "errors" }

// ErrorOccurrence is one raw reported instance, owned by its group.
// Rows are append-only; the only mutation is cascade deletion with the
// owning group. The JSON columns are stored as serialized blobs and
// parsed back to structured form on read.
type ErrorOccurrence struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ErrorID   uint   `gorm:"index:idx_occurrences_error_id;not null" json:"error_id"`
	Timestamp string `gorm:"index:idx_occurrences_timestamp;not null" json:"timestamp"`
	Category  string `gorm:"index:idx_occurrences_category;not null" json:"category"`

	Source     *string `json:"source"`
	Context    *string `json:"context"`
	StackTrace *string `json:"stack_trace"`

	PageURL        *string `json:"page_url"`
	ScreenshotPath *string `json:"screenshot_path"`

	ConsoleLogs   datatypes.JSON `gorm:"type:json" json:"console_logs"`
	NetworkErrors datatypes.JSON `gorm:"type:json" json:"network_errors"`

	RequestURL    *string        `json:"request_url"`
	RequestParams datatypes.JSON `gorm:"type:json" json:"request_params"`
	HTTPStatus    *int           `json:"http_status"`
	ResponseBody  *string        `json:"response_body"`

	Domain *string `json:"domain"`
	JobID  *int64  `json:"job_id"`

	RunID    *string `json:"run_id"`
	Suite    *string `json:"suite"`
	TestID   *string `json:"test_id"`
	TestName *string `json:"test_name"`

	ExtraData datatypes.JSON `gorm:"type:json" json:"extra_data"`
}

func (ErrorOccurrence) TableName() string { return "error_occurrences" }

// ConsoleLogEntry is one browser console line attached to a frontend
// report. Collectors send either "text" or "message" for the body.
type ConsoleLogEntry struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// Body returns the entry text, whichever field the collector filled.
func (e ConsoleLogEntry) Body() string {
	if e.Text != "" {
		return e.Text
	}
	return e.Message
}

// ConsoleLogEntries decodes the console_logs blob. Malformed persisted
// JSON reads back as empty rather than failing the caller.
func (o *ErrorOccurrence) ConsoleLogEntries() []ConsoleLogEntry {
	if len(o.ConsoleLogs) == 0 {
		return nil
	}
	var entries []ConsoleLogEntry
	if err := json.Unmarshal(o.ConsoleLogs, &entries); err != nil {
		return nil
	}
	return entries
}

// ExtraDataMap decodes the extra_data blob, empty on malformed JSON.
func (o *ErrorOccurrence) ExtraDataMap() map[string]any {
	if len(o.ExtraData) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(o.ExtraData, &m); err != nil {
		return nil
	}
	return m
}

// ErrorDetail is a group joined with its most recent occurrences and
// the resolved display label of its category.
type ErrorDetail struct {
	ErrorGroup
	Occurrences   []ErrorOccurrence `json:"occurrences"`
	CategoryLabel string            `json:"category_label"`
}
