package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/classboard/core"
)

// collections
const (
	usersCollection     = "users"
	materialsCollection = "materials"
	worksCollection     = "works"
	totalsCollection    = "work_totals"
)

// duplicateKey is the mongo error code raised on unique index clashes.
const duplicateKey = 11000

// Open connects to the configured mongo database and ensures its indexes.
func Open(ctx context.Context, conf *core.Config) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, wrapErr(err, "connecting to mongo")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, wrapErr(err, "pinging mongo")
	}

	db := client.Database(conf.Database.Name)
	if err = ensureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return db, nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string]mongo.IndexModel{
		usersCollection: {
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		materialsCollection: {Keys: bson.D{{Key: "uploadedAt", Value: -1}}},
		worksCollection:     {Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	for coll, idx := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateOne(ctx, idx); err != nil {
			return errors.Wrapf(err, "creating %s index", coll)
		}
	}
	return nil
}

func isDuplicateKey(err error) bool {
	switch e := errors.Cause(err).(type) {
	case mongo.WriteException:
		for _, we := range e.WriteErrors {
			if we.Code == duplicateKey {
				return true
			}
		}
	case mongo.CommandError:
		return e.Code == duplicateKey
	}
	return false
}

// wrapErr annotates err with msg. Operations on a disconnected client cannot succeed anymore:
// those errors become shutdown errors.
func wrapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == mongo.ErrClientDisconnected {
		return core.NewShutdownError(msg + ": " + err.Error())
	}
	return errors.Wrap(err, msg)
}

// objectID parses a hex ID. Anything else cannot match a document.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}
