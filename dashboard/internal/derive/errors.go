package derive

import (
	"time"

	"github.com/google/uuid"

	"github.com/gabiworld/pipewatch/pkg/types"
)

// ErrorEntry is one failed job as shown in the errors panel.
type ErrorEntry struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	Year       int             `json:"year"`
	Stage      types.Stage     `json:"stage"`
	Message    string          `json:"message"`
	Timestamp  types.Timestamp `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
	IsResolved bool            `json:"isResolved"`
}

// IDFunc generates a unique ErrorEntry id.
type IDFunc func() string

// NewID is the default IDFunc.
func NewID() string { return uuid.NewString() }

// Errors returns one ErrorEntry per failed job that carries an error
// message, in input order.
//
// Stage is always sync: the backend does not say which stage failed.
// Timestamp falls back to now when the job has no updated_at. A nil newID
// uses NewID.
func Errors(jobs []types.SyncJob, now time.Time, newID IDFunc) []ErrorEntry {
	if newID == nil {
		newID = NewID
	}
	out := make([]ErrorEntry, 0)
	for _, j := range jobs {
		if j.Status != types.StatusFailed || j.ErrorMessage == nil || *j.ErrorMessage == "" {
			continue
		}
		e := ErrorEntry{
			ID:      newID(),
			Source:  j.Source,
			Year:    j.Year,
			Stage:   types.StageSync,
			Message: *j.ErrorMessage,
		}
		if j.UpdatedAt != nil {
			e.Timestamp = *j.UpdatedAt
		} else {
			e.Timestamp = types.Timestamp{Time: now.UTC()}
		}
		if j.RetryCount != nil {
			e.RetryCount = *j.RetryCount
		}
		out = append(out, e)
	}
	return out
}

// ActiveErrors returns the entries that are not resolved.
func ActiveErrors(entries []ErrorEntry) []ErrorEntry {
	out := make([]ErrorEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsResolved {
			out = append(out, e)
		}
	}
	return out
}
