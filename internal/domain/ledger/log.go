package ledger

// LogStatus classifies one line of a batch log
type LogStatus string

const (
	LogSuccess LogStatus = "Success"
	LogBlocked LogStatus = "Blocked"
	LogIgnored LogStatus = "Ignored"
	LogError   LogStatus = "Error"
	LogWarning LogStatus = "Warning"
)

// LogEntry is one line of the per-operation log shown to the user
type LogEntry struct {
	Ref    string    `json:"ref"`
	Status LogStatus `json:"status"`
	Detail string    `json:"detail"`
}

// BatchReport is the outcome of one batch operation
type BatchReport struct {
	Operation string     `json:"operation"`
	Processed int        `json:"processed"`
	Succeeded int        `json:"succeeded"`
	Log       []LogEntry `json:"log"`
}

// Count returns the number of log lines with the status
func (r *BatchReport) Count(status LogStatus) int {
	n := 0
	for _, e := range r.Log {
		if e.Status == status {
			n++
		}
	}
	return n
}

// Fatal replaces the report with the outcome of a rolled back batch
func (r *BatchReport) Fatal(err error) {
	r.Succeeded = 0
	r.Log = []LogEntry{{Ref: "batch", Status: LogError, Detail: "Batch rolled back: " + err.Error()}}
}

type logBuffer struct {
	entries []LogEntry
}

func (b *logBuffer) add(ref string, status LogStatus, detail string) {
	b.entries = append(b.entries, LogEntry{Ref: ref, Status: status, Detail: detail})
}
