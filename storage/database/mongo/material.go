package mongorepos

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/classboard/core/material"
)

type materialDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Link         string             `bson:"link"`
	Username     string             `bson:"username"`
	MaterialName string             `bson:"materialName"`
	Subject      string             `bson:"subject"`
	FileFormat   string             `bson:"fileFormat"`
	UploadedAt   time.Time          `bson:"uploadedAt"`
}

func (d materialDoc) toMaterial() material.Material {
	return material.Material{
		ID:           d.ID.Hex(),
		Link:         d.Link,
		Username:     d.Username,
		MaterialName: d.MaterialName,
		Subject:      d.Subject,
		FileFormat:   d.FileFormat,
		UploadedAt:   d.UploadedAt.UTC(),
	}
}

type materialRepository struct {
	coll *mongo.Collection
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *mongo.Database) material.Repository {
	return &materialRepository{coll: db.Collection(materialsCollection)}
}

func (repo *materialRepository) CreateMaterial(ctx context.Context, mat material.Material) (material.Material, error) {
	doc := materialDoc{
		ID:           primitive.NewObjectID(),
		Link:         mat.Link,
		Username:     mat.Username,
		MaterialName: mat.MaterialName,
		Subject:      mat.Subject,
		FileFormat:   mat.FileFormat,
		UploadedAt:   mat.UploadedAt.UTC(),
	}
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return material.Material{}, wrapErr(err, "inserting material")
	}
	return doc.toMaterial(), nil
}

func (repo *materialRepository) QueryMaterials(ctx context.Context) ([]material.Material, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := repo.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, wrapErr(err, "querying materials")
	}
	var docs []materialDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, wrapErr(err, "decoding materials")
	}
	mats := make([]material.Material, 0, len(docs))
	for _, d := range docs {
		mats = append(mats, d.toMaterial())
	}
	return mats, nil
}
