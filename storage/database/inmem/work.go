package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/classboard/core/work"
)

type workRepository struct {
	db    *workTable
	rowDB *DB
}

var _ work.Repository = (*workRepository)(nil) // interface compliance check

func NewWorkRepository(db *DB) work.Repository {
	return &workRepository{db: db.work, rowDB: db}
}

// clone returns a copy of w that shares no memory with the table.
func clone(w work.Work) work.Work {
	statuses := make([]work.Status, len(w.Statuses))
	copy(statuses, w.Statuses)
	w.Statuses = statuses
	return w
}

func (repo *workRepository) query() []work.Work {
	works := make([]work.Work, 0, len(repo.db.table))
	for _, w := range repo.db.table {
		works = append(works, clone(*w))
	}
	sort.Slice(works, func(i, j int) bool {
		if !works[i].CreatedAt.Equal(works[j].CreatedAt) {
			return works[i].CreatedAt.After(works[j].CreatedAt)
		}
		return repo.db.seq[works[i].ID] > repo.db.seq[works[j].ID]
	})
	return works
}

func (repo *workRepository) CreateWork(_ context.Context, w work.Work) (work.Work, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	w.ID = uuid.New().String()
	w = clone(w)
	repo.db.table[w.ID] = &w
	repo.db.seq[w.ID] = repo.rowDB.nextSeq()
	return clone(w), nil
}

func (repo *workRepository) GetWork(_ context.Context, id string) (work.Work, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if w, ok := repo.db.table[id]; ok {
		return clone(*w), nil
	}
	return work.Work{}, work.ErrNotFound
}

func (repo *workRepository) QueryWorks(_ context.Context) ([]work.Work, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *workRepository) QueryWorkIDs(_ context.Context) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	works := repo.query()
	ids := make([]string, 0, len(works))
	for _, w := range works {
		ids = append(ids, w.ID)
	}
	return ids, nil
}

func (repo *workRepository) DeleteWork(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return work.ErrNotFound
	}
	delete(repo.db.table, id)
	delete(repo.db.seq, id)
	return nil
}

func (repo *workRepository) UpdateWork(_ context.Context, id string, fn func(w *work.Work) error) (work.Work, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[id]
	if !ok {
		return work.Work{}, work.ErrNotFound
	}
	w := clone(*orig)
	if err := fn(&w); err != nil {
		return work.Work{}, err
	}
	w.ID = id
	repo.db.table[id] = &w
	return clone(w), nil
}

func (repo *workRepository) RecomputeTotals(_ context.Context, now time.Time) (work.Totals, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	totals := work.SumCounts(repo.query(), now)
	repo.db.totals = &totals
	return totals, nil
}

func (repo *workRepository) GetTotals(_ context.Context) (work.Totals, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.totals == nil {
		return work.Totals{}, nil
	}
	return *repo.db.totals, nil
}
