package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classboard/core/work"
)

const (
	workColumns   = `id, subject, work, deadline, added_by, file_url, created_at, completed_count, doing_count, not_started_count`
	statusColumns = `work_id, user_id, username, state, updated_at`
)

type (
	workRow struct {
		ID              string      `db:"id"`
		Subject         string      `db:"subject"`
		Work            string      `db:"work"`
		Deadline        string      `db:"deadline"`
		AddedBy         string      `db:"added_by"`
		FileURL         null.String `db:"file_url"`
		CreatedAt       time.Time   `db:"created_at"`
		CompletedCount  int         `db:"completed_count"`
		DoingCount      int         `db:"doing_count"`
		NotStartedCount int         `db:"not_started_count"`
	}

	statusRow struct {
		WorkID    string    `db:"work_id"`
		UserID    string    `db:"user_id"`
		Username  string    `db:"username"`
		State     string    `db:"state"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	totalsRow struct {
		TotalWorks    int       `db:"total_works"`
		Completed     int       `db:"completed"`
		Doing         int       `db:"doing"`
		NotYetStarted int       `db:"not_yet_started"`
		UpdatedAt     time.Time `db:"updated_at"`
	}
)

func newWorkRow(w work.Work) workRow {
	return workRow{
		ID:              w.ID,
		Subject:         w.Subject,
		Work:            w.Work,
		Deadline:        w.Deadline,
		AddedBy:         w.AddedBy,
		FileURL:         null.NewString(w.FileURL, w.FileURL != ""),
		CreatedAt:       w.CreatedAt.UTC(),
		CompletedCount:  w.Counts.Completed,
		DoingCount:      w.Counts.Doing,
		NotStartedCount: w.Counts.NotYetStarted,
	}
}

func (r workRow) toWork(statuses []statusRow) work.Work {
	w := work.Work{
		ID:        r.ID,
		Subject:   r.Subject,
		Work:      r.Work,
		Deadline:  r.Deadline,
		AddedBy:   r.AddedBy,
		FileURL:   r.FileURL.String,
		CreatedAt: r.CreatedAt.UTC(),
		Statuses:  make([]work.Status, 0, len(statuses)),
		Counts: work.Counts{
			Completed:     r.CompletedCount,
			Doing:         r.DoingCount,
			NotYetStarted: r.NotStartedCount,
		},
	}
	for _, s := range statuses {
		w.Statuses = append(w.Statuses, work.Status{
			UserID:    s.UserID,
			Username:  s.Username,
			State:     s.State,
			UpdatedAt: s.UpdatedAt.UTC(),
		})
	}
	return w
}

func (r totalsRow) toTotals() work.Totals {
	return work.Totals{
		TotalWorks:    r.TotalWorks,
		Completed:     r.Completed,
		Doing:         r.Doing,
		NotYetStarted: r.NotYetStarted,
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type workRepository struct {
	db *sqlx.DB
}

var _ work.Repository = (*workRepository)(nil) // interface compliance check

func NewWorkRepository(db *sqlx.DB) work.Repository {
	return &workRepository{db: db}
}

func (repo *workRepository) getWork(ctx context.Context, q sqlx.QueryerContext, id string, forUpdate bool) (work.Work, error) {
	if !isUUID(id) {
		return work.Work{}, work.ErrNotFound
	}

	query := `SELECT ` + workColumns + ` FROM work WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row workRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		return work.Work{}, trapNoRowsErr(err, work.ErrNotFound, "finding work")
	}

	var statuses []statusRow
	query = `SELECT ` + statusColumns + ` FROM work_status WHERE work_id = $1 ORDER BY position`
	if err := sqlx.SelectContext(ctx, q, &statuses, query, id); err != nil {
		return work.Work{}, wrapErr(err, "querying work statuses")
	}
	return row.toWork(statuses), nil
}

func (repo *workRepository) CreateWork(ctx context.Context, w work.Work) (work.Work, error) {
	w.ID = uuid.New().String()
	q := `INSERT INTO work (` + workColumns + `) VALUES (
		:id, :subject, :work, :deadline, :added_by, :file_url, :created_at, :completed_count, :doing_count, :not_started_count)`
	if _, err := repo.db.NamedExecContext(ctx, q, newWorkRow(w)); err != nil {
		return work.Work{}, wrapErr(err, "inserting work")
	}
	if w.Statuses == nil {
		w.Statuses = []work.Status{}
	}
	return w, nil
}

func (repo *workRepository) GetWork(ctx context.Context, id string) (work.Work, error) {
	return repo.getWork(ctx, repo.db, id, false)
}

func (repo *workRepository) QueryWorks(ctx context.Context) ([]work.Work, error) {
	var rows []workRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+workColumns+` FROM work ORDER BY created_at DESC, id`); err != nil {
		return nil, wrapErr(err, "querying works")
	}

	var statuses []statusRow
	if err := repo.db.SelectContext(ctx, &statuses, `SELECT `+statusColumns+` FROM work_status ORDER BY position`); err != nil {
		return nil, wrapErr(err, "querying work statuses")
	}
	byWork := make(map[string][]statusRow, len(rows))
	for _, s := range statuses {
		byWork[s.WorkID] = append(byWork[s.WorkID], s)
	}

	works := make([]work.Work, 0, len(rows))
	for _, r := range rows {
		works = append(works, r.toWork(byWork[r.ID]))
	}
	return works, nil
}

func (repo *workRepository) QueryWorkIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := repo.db.SelectContext(ctx, &ids, `SELECT id FROM work ORDER BY created_at DESC, id`); err != nil {
		return nil, wrapErr(err, "querying work IDs")
	}
	return ids, nil
}

func (repo *workRepository) DeleteWork(ctx context.Context, id string) error {
	if !isUUID(id) {
		return work.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM work WHERE id = $1`, id)
	if err != nil {
		return wrapErr(err, "deleting work")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return work.ErrNotFound
	}
	return nil
}

// UpdateWork locks the work row for the whole read-modify-write, so concurrent status changes are applied one after the other.
func (repo *workRepository) UpdateWork(ctx context.Context, id string, fn func(w *work.Work) error) (work.Work, error) {
	var updated work.Work

	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		w, err := repo.getWork(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err = fn(&w); err != nil {
			return err
		}
		w.ID = id

		q := `UPDATE work SET subject = :subject, work = :work, deadline = :deadline, added_by = :added_by, file_url = :file_url,
			completed_count = :completed_count, doing_count = :doing_count, not_started_count = :not_started_count
			WHERE id = :id`
		if _, err = tx.NamedExecContext(ctx, q, newWorkRow(w)); err != nil {
			return wrapErr(err, "updating work")
		}

		userIDs := make([]string, 0, len(w.Statuses))
		for _, s := range w.Statuses {
			q = `INSERT INTO work_status (work_id, user_id, username, state, updated_at) VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (work_id, user_id) DO UPDATE
				SET username = EXCLUDED.username, state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`
			if _, err = tx.ExecContext(ctx, q, id, s.UserID, s.Username, s.State, s.UpdatedAt.UTC()); err != nil {
				return wrapErr(err, "saving work status")
			}
			userIDs = append(userIDs, s.UserID)
		}
		q = `DELETE FROM work_status WHERE work_id = $1 AND NOT (user_id = ANY($2))`
		if _, err = tx.ExecContext(ctx, q, id, pq.Array(userIDs)); err != nil {
			return wrapErr(err, "pruning work statuses")
		}

		updated = w
		return nil
	})
	if err != nil {
		return work.Work{}, err
	}
	return updated, nil
}

// RecomputeTotals aggregates every work counts and upserts the result in one statement.
// Recomputes hold a transaction scoped advisory lock: the last one to commit sees every earlier committed change.
func (repo *workRepository) RecomputeTotals(ctx context.Context, now time.Time) (work.Totals, error) {
	var row totalsRow

	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('work_totals'))`); err != nil {
			return wrapErr(err, "locking totals")
		}
		q := `INSERT INTO work_totals (key, total_works, completed, doing, not_yet_started, updated_at)
			SELECT $1, COUNT(*), COALESCE(SUM(completed_count), 0), COALESCE(SUM(doing_count), 0), COALESCE(SUM(not_started_count), 0), $2
			FROM work
			ON CONFLICT (key) DO UPDATE SET
				total_works = EXCLUDED.total_works,
				completed = EXCLUDED.completed,
				doing = EXCLUDED.doing,
				not_yet_started = EXCLUDED.not_yet_started,
				updated_at = EXCLUDED.updated_at
			RETURNING total_works, completed, doing, not_yet_started, updated_at`
		if err := tx.GetContext(ctx, &row, q, work.TotalsKey, now.UTC()); err != nil {
			return wrapErr(err, "upserting totals")
		}
		return nil
	})
	if err != nil {
		return work.Totals{}, err
	}
	return row.toTotals(), nil
}

func (repo *workRepository) GetTotals(ctx context.Context) (work.Totals, error) {
	var row totalsRow
	q := `SELECT total_works, completed, doing, not_yet_started, updated_at FROM work_totals WHERE key = $1`
	if err := repo.db.GetContext(ctx, &row, q, work.TotalsKey); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return work.Totals{}, nil
		}
		return work.Totals{}, wrapErr(err, "finding totals")
	}
	return row.toTotals(), nil
}
