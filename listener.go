package xlmap

// Event is one status notification for a task. Complete marks the final
// event of a run; Warnings is only populated on it.
type Event struct {
	TaskID      string   `json:"task_id"`
	Status      string   `json:"status"`
	Progress    int      `json:"progress"`
	Complete    bool     `json:"complete"`
	ResultReady bool     `json:"result_ready"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Reporter delivers status events (push channel, polling store, ...).
// It is called at high frequency; an error is logged and otherwise ignored.
type Reporter interface {
	Report(ev Event) error
}

// Outcome is the terminal state of a task as stored in the registry.
type Outcome struct {
	Status   string
	Result   []byte // nil on failure
	Filename string
	Warnings []string
}

// TaskStore is the task registry as seen by the processor. Entries are
// created by the caller before a run starts.
type TaskStore interface {
	Owner(taskID string) string
	SetStatus(taskID, status string, progress int)
	Finish(taskID string, out Outcome)
	Prune(taskID string)
}

// TaskLogger persists one line per finished task.
type TaskLogger interface {
	Record(taskID, ownerID, status, templateName string) error
}

// Geocoder resolves addresses to coordinates and back.
type Geocoder interface {
	Coords(address string) (lat, lon string, ok bool)
	Address(lat, lon float64) (string, bool)
}

// ColumnResolver finds logical columns in a header row. headers holds the
// header cell texts (index 0 = column A); wanted maps a logical name to its
// header label. The result maps logical names to 1-based column indices and
// omits names that were not found.
type ColumnResolver interface {
	FindColumns(headers []string, wanted map[string]string) map[string]int
}

type nopReporter struct{}

func (nopReporter) Report(Event) error { return nil }

type nopStore struct{}

func (nopStore) Owner(string) string            { return "" }
func (nopStore) SetStatus(string, string, int) {}
func (nopStore) Finish(string, Outcome)        {}
func (nopStore) Prune(string)                  {}

type nopLogger struct{}

func (nopLogger) Record(string, string, string, string) error { return nil }
