package material

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
)

type (
	Repository interface {
		CreateMaterial(ctx context.Context, mat Material) (Material, error)
		// QueryMaterials returns all materials, newest first.
		QueryMaterials(ctx context.Context) ([]Material, error)
	}

	Service struct {
		repo    Repository
		storage core.FileStorage
	}
)

func NewService(repo Repository, storage core.FileStorage) *Service {
	return &Service{repo: repo, storage: storage}
}

// objectKey returns a collision free storage key that keeps the file extension.
func objectKey(prefix, filename string) string {
	key := uuid.New().String()
	if ext := core.FileExt(filename); ext != "" {
		key += "." + ext
	}
	return path.Join(prefix, key)
}

// UploadFile forwards r to the file storage and returns its URL.
func (svc *Service) UploadFile(ctx context.Context, prefix string, up Upload, r io.Reader) (string, error) {
	url, err := svc.storage.Upload(ctx, objectKey(prefix, up.Filename), r, up.ContentType)
	if err != nil {
		return "", errors.Wrap(err, "uploading file")
	}
	return url, nil
}

// Upload stores the file and records it as a Material.
func (svc *Service) Upload(ctx context.Context, nm NewMaterial, up Upload, r io.Reader) (Material, error) {
	url, err := svc.UploadFile(ctx, "materials", up, r)
	if err != nil {
		return Material{}, err
	}

	name := core.CleanString(nm.MaterialName)
	if name == "" {
		name = core.CleanString(up.Filename)
	}
	mat := Material{
		Link:         url,
		Username:     core.CleanString(nm.Username),
		MaterialName: name,
		Subject:      core.CleanString(nm.Subject),
		FileFormat:   core.FileExt(up.Filename),
		UploadedAt:   time.Now().UTC(),
	}
	mat, err = svc.repo.CreateMaterial(ctx, mat)
	if err != nil {
		return Material{}, errors.Wrap(err, "creating material")
	}
	return mat, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Material, error) {
	return svc.repo.QueryMaterials(ctx)
}
