package work

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
)

var (
	// errors
	ErrNotFound     = errors.New("work not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("work was modified concurrently")
)

type (
	Repository interface {
		CreateWork(ctx context.Context, w Work) (Work, error)
		GetWork(ctx context.Context, id string) (Work, error)
		// QueryWorks returns all works, newest first.
		QueryWorks(ctx context.Context) ([]Work, error)
		QueryWorkIDs(ctx context.Context) ([]string, error)
		DeleteWork(ctx context.Context, id string) error
		// UpdateWork loads the Work, applies fn and saves the result, all under mutual exclusion
		// with any other UpdateWork call on the same Work. Nothing is saved if fn fails.
		UpdateWork(ctx context.Context, id string, fn func(w *Work) error) (Work, error)
		// RecomputeTotals sums the cached Counts of every Work into the Totals record, creating it if needed.
		RecomputeTotals(ctx context.Context, now time.Time) (Totals, error)
		// GetTotals returns zero Totals when none were computed yet.
		GetTotals(ctx context.Context) (Totals, error)
	}

	Service struct {
		repo Repository
		now  func() time.Time
	}
)

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (svc *Service) Create(ctx context.Context, nw NewWork) (Work, error) {
	w := Work{
		Subject:   nw.Subject,
		Work:      nw.Work,
		Deadline:  nw.Deadline,
		AddedBy:   nw.AddedBy,
		FileURL:   nw.FileURL,
		CreatedAt: svc.now(),
		Statuses:  []Status{},
	}
	w, err := svc.repo.CreateWork(ctx, w)
	if err != nil {
		return Work{}, errors.Wrap(err, "creating work")
	}
	if _, err = svc.RecomputeTotals(ctx); err != nil {
		return Work{}, err
	}
	return w, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Work, error) {
	return svc.repo.GetWork(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Work, error) {
	return svc.repo.QueryWorks(ctx)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteWork(ctx, id); err != nil {
		return err
	}
	_, err := svc.RecomputeTotals(ctx)
	return err
}

// UpsertStatus sets the state of a user on a Work, then refreshes the Work Counts and the global Totals.
// On success, both caches reflect the change.
func (svc *Service) UpsertStatus(ctx context.Context, workID string, us UpdateStatus) (Work, error) {
	if !IsValidState(us.State) {
		return Work{}, core.NewValidationError(ErrInvalidState, core.FieldError{Field: "state", Error: workStateText})
	}

	now := svc.now()
	w, err := svc.repo.UpdateWork(ctx, workID, func(w *Work) error {
		w.SetStatus(us.UserID, us.Username, us.State, now)
		w.RecalculateCounts()
		return nil
	})
	if err != nil {
		return Work{}, err
	}

	if _, err = svc.RecomputeTotals(ctx); err != nil {
		return Work{}, err
	}
	return w, nil
}

// RecalculateCounts re-derives the cached Counts of a Work from its statuses.
func (svc *Service) RecalculateCounts(ctx context.Context, workID string) (Work, error) {
	return svc.repo.UpdateWork(ctx, workID, func(w *Work) error {
		w.RecalculateCounts()
		return nil
	})
}

// RecomputeTotals re-derives the global Totals from the cached Counts of every Work.
func (svc *Service) RecomputeTotals(ctx context.Context) (Totals, error) {
	totals, err := svc.repo.RecomputeTotals(ctx, svc.now())
	if err != nil {
		return Totals{}, errors.Wrap(err, "recomputing totals")
	}
	return totals, nil
}

// RecomputeAll repairs both cache layers: every Work Counts first, then the global Totals.
func (svc *Service) RecomputeAll(ctx context.Context) (Totals, error) {
	ids, err := svc.repo.QueryWorkIDs(ctx)
	if err != nil {
		return Totals{}, errors.Wrap(err, "querying work IDs")
	}
	for _, id := range ids {
		if _, err = svc.RecalculateCounts(ctx, id); err != nil {
			if errors.Cause(err) == ErrNotFound { // deleted meanwhile
				continue
			}
			return Totals{}, errors.Wrapf(err, "recalculating counts of work %s", id)
		}
	}
	return svc.RecomputeTotals(ctx)
}

func (svc *Service) Totals(ctx context.Context) (Totals, error) {
	return svc.repo.GetTotals(ctx)
}
