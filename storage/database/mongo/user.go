package mongorepos

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/classboard/core/user"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Name         string             `bson:"name"`
	IsAdmin      bool               `bson:"isAdmin"`
	PasswordHash []byte             `bson:"passwordHash"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

func (d userDoc) toUser() user.User {
	return user.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Name:         d.Name,
		IsAdmin:      d.IsAdmin,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

type userRepository struct {
	coll *mongo.Collection
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *mongo.Database) user.Repository {
	return &userRepository{coll: db.Collection(usersCollection)}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string) error {
	n, err := repo.coll.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return wrapErr(err, "checking email uniqueness")
	}
	if n > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Email:        usr.Email,
		Name:         usr.Name,
		IsAdmin:      usr.IsAdmin,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
	}
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		if isDuplicateKey(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, wrapErr(err, "inserting user")
	}
	return doc.toUser(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context) ([]user.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := repo.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, wrapErr(err, "querying users")
	}
	var docs []userDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, wrapErr(err, "decoding users")
	}
	users := make([]user.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var query bson.M
	switch {
	case filter.ID != "":
		oid, ok := objectID(filter.ID)
		if !ok {
			return user.User{}, user.ErrNotFound
		}
		query = bson.M{"_id": oid}
	case filter.Email != "":
		query = bson.M{"email": filter.Email}
	default:
		return user.User{}, user.ErrNotFound
	}

	var doc userDoc
	if err := repo.coll.FindOne(ctx, query).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, wrapErr(err, "finding user")
	}
	return doc.toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	oid, ok := objectID(usr.ID)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	set := bson.M{"email": usr.Email, "name": usr.Name, "isAdmin": usr.IsAdmin}
	if usr.PasswordHash != nil {
		set["passwordHash"] = usr.PasswordHash
	}

	var doc userDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		if isDuplicateKey(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, wrapErr(err, "updating user")
	}
	return doc.toUser(), nil
}
