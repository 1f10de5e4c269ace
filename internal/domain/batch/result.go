package batch

import "time"

// ItemStatus is the processing outcome of a single project in a refresh run.
type ItemStatus string

// Item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of rebuilding one project inside a scheduler run.
type Result struct {
	projectID int64
	status    ItemStatus
	matches   int
	err       error
}

// NewOK creates a successful result carrying the number of upserted matches.
func NewOK(projectID int64, matches int) Result {
	return Result{projectID: projectID, status: StatusOK, matches: matches}
}

// NewError creates a failed result.
func NewError(projectID int64, err error) Result {
	return Result{projectID: projectID, status: StatusError, err: err}
}

// ProjectID returns the project identifier.
func (r Result) ProjectID() int64 { return r.projectID }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Matches returns the number of matches upserted for the project.
func (r Result) Matches() int { return r.matches }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Report summarizes one scheduler run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
}

// Succeeded counts projects rebuilt without error.
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.status == StatusOK {
			n++
		}
	}
	return n
}

// Failed returns the results that ended in error.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.status == StatusError {
			out = append(out, res)
		}
	}
	return out
}
