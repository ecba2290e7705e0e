package progress

type State string

const (
	StateIdle        State = "idle"
	StatePreparing   State = "preparing"
	StateDownloading State = "downloading"
	StateCompleted   State = "completed"
	StateError       State = "error"
)

// Active reports whether a unit of work currently owns the record.
func (s State) Active() bool {
	return s == StatePreparing || s == StateDownloading
}

// Terminal reports whether no further automatic transition can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Record is the progress snapshot of one album. It is a value type:
// the store replaces records wholesale and never mutates them in place.
type Record struct {
	State   State `json:"state"`
	Current int   `json:"current"`
	Total   int   `json:"total"`
	Percent int   `json:"percent"`
}

// Percent returns floor(current*100/total), or 0 when total is not positive.
func Percent(current, total int) int {
	if total <= 0 {
		return 0
	}
	return current * 100 / total
}

func Idle() Record { return Record{State: StateIdle} }

func Preparing() Record { return Record{State: StatePreparing} }

// Downloading builds an in-flight record with percent derived from current and total.
func Downloading(current, total int) Record {
	return Record{State: StateDownloading, Current: current, Total: total, Percent: Percent(current, total)}
}

// Completed keeps the final counters and forces percent to 100.
func (r Record) Completed() Record {
	return Record{State: StateCompleted, Current: r.Current, Total: r.Total, Percent: 100}
}

// Failed keeps the last-known counters and switches to the error state.
func (r Record) Failed() Record {
	r.State = StateError
	return r
}
