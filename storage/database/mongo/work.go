package mongorepos

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/classboard/core/work"
)

// maxUpdateAttempts bounds the optimistic retries of UpdateWork.
const maxUpdateAttempts = 10

type (
	statusDoc struct {
		UserID    string    `bson:"userId"`
		Username  string    `bson:"username"`
		State     string    `bson:"state"`
		UpdatedAt time.Time `bson:"updatedAt"`
	}

	countsDoc struct {
		Completed     int `bson:"completed"`
		Doing         int `bson:"doing"`
		NotYetStarted int `bson:"notYetStarted"`
	}

	workDoc struct {
		ID        primitive.ObjectID `bson:"_id,omitempty"`
		Subject   string             `bson:"subject"`
		Work      string             `bson:"work"`
		Deadline  string             `bson:"deadline"`
		AddedBy   string             `bson:"addedBy"`
		FileURL   string             `bson:"fileUrl,omitempty"`
		CreatedAt time.Time          `bson:"createdAt"`
		Statuses  []statusDoc        `bson:"statuses"`
		Counts    countsDoc          `bson:"counts"`
		Version   int64              `bson:"version"`
	}

	totalsDoc struct {
		Key           string    `bson:"_id"`
		TotalWorks    int       `bson:"totalWorks"`
		Completed     int       `bson:"completed"`
		Doing         int       `bson:"doing"`
		NotYetStarted int       `bson:"notYetStarted"`
		UpdatedAt     time.Time `bson:"updatedAt"`
	}
)

func newWorkDoc(w work.Work) workDoc {
	doc := workDoc{
		Subject:   w.Subject,
		Work:      w.Work,
		Deadline:  w.Deadline,
		AddedBy:   w.AddedBy,
		FileURL:   w.FileURL,
		CreatedAt: w.CreatedAt.UTC(),
		Statuses:  make([]statusDoc, 0, len(w.Statuses)),
		Counts:    countsDoc(w.Counts),
	}
	for _, s := range w.Statuses {
		doc.Statuses = append(doc.Statuses, statusDoc{
			UserID:    s.UserID,
			Username:  s.Username,
			State:     s.State,
			UpdatedAt: s.UpdatedAt.UTC(),
		})
	}
	return doc
}

func (d workDoc) toWork() work.Work {
	w := work.Work{
		ID:        d.ID.Hex(),
		Subject:   d.Subject,
		Work:      d.Work,
		Deadline:  d.Deadline,
		AddedBy:   d.AddedBy,
		FileURL:   d.FileURL,
		CreatedAt: d.CreatedAt.UTC(),
		Statuses:  make([]work.Status, 0, len(d.Statuses)),
		Counts:    work.Counts(d.Counts),
	}
	for _, s := range d.Statuses {
		w.Statuses = append(w.Statuses, work.Status{
			UserID:    s.UserID,
			Username:  s.Username,
			State:     s.State,
			UpdatedAt: s.UpdatedAt.UTC(),
		})
	}
	return w
}

func (d totalsDoc) toTotals() work.Totals {
	return work.Totals{
		TotalWorks:    d.TotalWorks,
		Completed:     d.Completed,
		Doing:         d.Doing,
		NotYetStarted: d.NotYetStarted,
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

type workRepository struct {
	works  *mongo.Collection
	totals *mongo.Collection
}

var _ work.Repository = (*workRepository)(nil) // interface compliance check

func NewWorkRepository(db *mongo.Database) work.Repository {
	return &workRepository{
		works:  db.Collection(worksCollection),
		totals: db.Collection(totalsCollection),
	}
}

func (repo *workRepository) findWork(ctx context.Context, id string) (workDoc, error) {
	oid, ok := objectID(id)
	if !ok {
		return workDoc{}, work.ErrNotFound
	}
	var doc workDoc
	if err := repo.works.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return workDoc{}, work.ErrNotFound
		}
		return workDoc{}, wrapErr(err, "finding work")
	}
	return doc, nil
}

func (repo *workRepository) CreateWork(ctx context.Context, w work.Work) (work.Work, error) {
	doc := newWorkDoc(w)
	doc.ID = primitive.NewObjectID()
	if _, err := repo.works.InsertOne(ctx, doc); err != nil {
		return work.Work{}, wrapErr(err, "inserting work")
	}
	return doc.toWork(), nil
}

func (repo *workRepository) GetWork(ctx context.Context, id string) (work.Work, error) {
	doc, err := repo.findWork(ctx, id)
	if err != nil {
		return work.Work{}, err
	}
	return doc.toWork(), nil
}

func (repo *workRepository) QueryWorks(ctx context.Context) ([]work.Work, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := repo.works.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, wrapErr(err, "querying works")
	}
	var docs []workDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, wrapErr(err, "decoding works")
	}
	works := make([]work.Work, 0, len(docs))
	for _, d := range docs {
		works = append(works, d.toWork())
	}
	return works, nil
}

func (repo *workRepository) QueryWorkIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.M{"_id": 1})
	cur, err := repo.works.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, wrapErr(err, "querying work IDs")
	}
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cur.All(ctx, &docs); err != nil {
		return nil, wrapErr(err, "decoding work IDs")
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID.Hex())
	}
	return ids, nil
}

func (repo *workRepository) DeleteWork(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return work.ErrNotFound
	}
	res, err := repo.works.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return wrapErr(err, "deleting work")
	}
	if res.DeletedCount == 0 {
		return work.ErrNotFound
	}
	return nil
}

// UpdateWork is an optimistic read-modify-write: the replacement only applies if the
// document version did not change since it was read, otherwise the whole cycle is retried.
func (repo *workRepository) UpdateWork(ctx context.Context, id string, fn func(w *work.Work) error) (work.Work, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		doc, err := repo.findWork(ctx, id)
		if err != nil {
			return work.Work{}, err
		}

		w := doc.toWork()
		if err = fn(&w); err != nil {
			return work.Work{}, err
		}

		newDoc := newWorkDoc(w)
		newDoc.ID = doc.ID
		newDoc.Version = doc.Version + 1

		res, err := repo.works.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": doc.Version}, newDoc)
		if err != nil {
			return work.Work{}, wrapErr(err, "replacing work")
		}
		if res.MatchedCount == 1 {
			return newDoc.toWork(), nil
		}
		// modified (or deleted) meanwhile: reload and reapply
	}
	return work.Work{}, work.ErrConflict
}

// RecomputeTotals groups every work counts with the aggregation pipeline, then upserts the Totals record.
// The write is conditional on updatedAt: a recompute never overwrites totals computed after it started.
func (repo *workRepository) RecomputeTotals(ctx context.Context, now time.Time) (work.Totals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalWorks", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "completed", Value: bson.D{{Key: "$sum", Value: "$counts.completed"}}},
			{Key: "doing", Value: bson.D{{Key: "$sum", Value: "$counts.doing"}}},
			{Key: "notYetStarted", Value: bson.D{{Key: "$sum", Value: "$counts.notYetStarted"}}},
		}}},
	}
	cur, err := repo.works.Aggregate(ctx, pipeline)
	if err != nil {
		return work.Totals{}, wrapErr(err, "aggregating work counts")
	}
	var groups []struct {
		TotalWorks    int `bson:"totalWorks"`
		Completed     int `bson:"completed"`
		Doing         int `bson:"doing"`
		NotYetStarted int `bson:"notYetStarted"`
	}
	if err = cur.All(ctx, &groups); err != nil {
		return work.Totals{}, wrapErr(err, "decoding work counts")
	}

	totals := totalsDoc{Key: work.TotalsKey, UpdatedAt: now.UTC()}
	if len(groups) > 0 { // no group at all when there is no work
		g := groups[0]
		totals.TotalWorks, totals.Completed, totals.Doing, totals.NotYetStarted = g.TotalWorks, g.Completed, g.Doing, g.NotYetStarted
	}

	filter := bson.M{"_id": work.TotalsKey, "updatedAt": bson.M{"$lte": totals.UpdatedAt}}
	_, err = repo.totals.ReplaceOne(ctx, filter, totals, options.Replace().SetUpsert(true))
	if err != nil {
		if isDuplicateKey(err) { // a fresher recompute already won
			return repo.GetTotals(ctx)
		}
		return work.Totals{}, wrapErr(err, "upserting totals")
	}
	return totals.toTotals(), nil
}

func (repo *workRepository) GetTotals(ctx context.Context) (work.Totals, error) {
	var doc totalsDoc
	if err := repo.totals.FindOne(ctx, bson.M{"_id": work.TotalsKey}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return work.Totals{}, nil
		}
		return work.Totals{}, wrapErr(err, "finding totals")
	}
	return doc.toTotals(), nil
}
