package work

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classboard/core"
)

// States
const (
	StateCompleted     = "completed"
	StateDoing         = "doing"
	StateNotYetStarted = "not yet started"
)

// TotalsKey is the fixed key of the single Totals record.
const TotalsKey = "global"

var States = []string{StateCompleted, StateDoing, StateNotYetStarted}

func IsValidState(state string) bool {
	for _, s := range States {
		if s == state {
			return true
		}
	}
	return false
}

// Status is one user's progress on a Work. A Work holds at most one Status per user.
type Status struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

// Counts caches the number of statuses in each state. Its sum always equals len(Work.Statuses).
type Counts struct {
	Completed     int `json:"completed"`
	Doing         int `json:"doing"`
	NotYetStarted int `json:"notYetStarted"`
}

func (c Counts) Total() int {
	return c.Completed + c.Doing + c.NotYetStarted
}

func (c Counts) Add(o Counts) Counts {
	return Counts{
		Completed:     c.Completed + o.Completed,
		Doing:         c.Doing + o.Doing,
		NotYetStarted: c.NotYetStarted + o.NotYetStarted,
	}
}

// CountStates tallies statuses by state. Any state other than completed or doing counts as not yet started.
func CountStates(statuses []Status) Counts {
	var c Counts
	for _, s := range statuses {
		switch s.State {
		case StateCompleted:
			c.Completed++
		case StateDoing:
			c.Doing++
		default:
			c.NotYetStarted++
		}
	}
	return c
}

// Work is an assignment tracked by the class.
type Work struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Work      string    `json:"work"`
	Deadline  string    `json:"deadline"` // free text
	AddedBy   string    `json:"addedBy"`
	FileURL   string    `json:"fileUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"` // UTC
	Statuses  []Status  `json:"statuses"`
	Counts    Counts    `json:"counts"`
}

// SetStatus overwrites the Status of userID in place, or appends a new one.
func (w *Work) SetStatus(userID, username, state string, now time.Time) {
	for i := range w.Statuses {
		if w.Statuses[i].UserID == userID {
			w.Statuses[i].Username = username
			w.Statuses[i].State = state
			w.Statuses[i].UpdatedAt = now
			return
		}
	}
	w.Statuses = append(w.Statuses, Status{UserID: userID, Username: username, State: state, UpdatedAt: now})
}

// RecalculateCounts re-derives Counts from Statuses. Idempotent.
func (w *Work) RecalculateCounts() {
	w.Counts = CountStates(w.Statuses)
}

// Totals is the global summary over every Work, stored under TotalsKey.
type Totals struct {
	TotalWorks    int       `json:"totalWorks"`
	Completed     int       `json:"completed"`
	Doing         int       `json:"doing"`
	NotYetStarted int       `json:"notYetStarted"`
	UpdatedAt     time.Time `json:"updatedAt"` // UTC
}

// SumCounts computes the Totals of works from their cached Counts.
func SumCounts(works []Work, now time.Time) Totals {
	var sum Counts
	for _, w := range works {
		sum = sum.Add(w.Counts)
	}
	return Totals{
		TotalWorks:    len(works),
		Completed:     sum.Completed,
		Doing:         sum.Doing,
		NotYetStarted: sum.NotYetStarted,
		UpdatedAt:     now,
	}
}

// NewWork contains information needed to create a Work.
type NewWork struct {
	Subject  string `json:"subject" validate:"required,notblank"`
	Work     string `json:"work" validate:"required,notblank"`
	Deadline string `json:"deadline" validate:"required,notblank"`
	AddedBy  string `json:"addedBy"`
	FileURL  string `json:"fileUrl" validate:"omitempty,url"`
}

func (nw *NewWork) Validate(validate *validator.Validate) error {
	nw.Subject = core.CleanString(nw.Subject)
	nw.Work = core.CleanString(nw.Work)
	nw.Deadline = core.CleanString(nw.Deadline)
	nw.AddedBy = core.CleanString(nw.AddedBy)
	nw.FileURL = core.CleanString(nw.FileURL)
	return validate.Struct(nw)
}

// UpdateStatus sets a user's state on a Work.
type UpdateStatus struct {
	UserID   string `json:"userId" validate:"required"`
	Username string `json:"username" validate:"required,notblank"`
	State    string `json:"state" validate:"required,workstate"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.UserID = core.CleanString(us.UserID)
	us.Username = core.CleanString(us.Username)
	return validate.Struct(us)
}
