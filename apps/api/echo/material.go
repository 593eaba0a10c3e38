package echoapi

import (
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/material"
)

const (
	fileField     = "file"
	workFilesPath = "works"

	// multipartMemory is the part of a multipart form kept in memory, the rest is buffered in temp files.
	multipartMemory = 1 << 20
)

type (
	WorkFileResponse struct {
		FileURL string `json:"fileUrl"`
	}

	materialApi struct {
		svc *material.Service
	}
)

func registerMaterialAPI(g *echo.Group, svc *material.Service) {
	api := materialApi{svc: svc}

	g.POST("/upload", api.upload)
	g.POST("/work/upload", api.uploadWorkFile)
	g.GET("/materials", api.query)
}

// withUploadedFile parses the multipart form and hands its file over to fn.
// Temporary files created while parsing are removed once fn returns, whatever the outcome.
func withUploadedFile(ctx echo.Context, fn func(form *multipart.Form, up material.Upload, file multipart.File) error) error {
	req := ctx.Request()
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		if err == http.ErrNotMultipart {
			return core.NewValidationError(errNoFile)
		}
		return errors.Wrap(err, "parsing multipart form")
	}
	form := req.MultipartForm
	defer func() { _ = form.RemoveAll() }()

	headers := form.File[fileField]
	if len(headers) == 0 {
		return core.NewValidationError(errNoFile)
	}
	fh := headers[0]

	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	up := material.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
	}
	return fn(form, up, file)
}

func formValue(form *multipart.Form, key string) string {
	if vals := form.Value[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Handlers

func (api *materialApi) upload(ctx echo.Context) error {
	return withUploadedFile(ctx, func(form *multipart.Form, up material.Upload, file multipart.File) error {
		nm := material.NewMaterial{
			Username:     formValue(form, "username"),
			MaterialName: formValue(form, "materialName"),
			Subject:      formValue(form, "subject"),
		}
		mat, err := api.svc.Upload(ctx.Request().Context(), nm, up, file)
		if err != nil {
			return err
		}
		return created(ctx, mat, "Material uploaded successfully")
	})
}

func (api *materialApi) uploadWorkFile(ctx echo.Context) error {
	return withUploadedFile(ctx, func(_ *multipart.Form, up material.Upload, file multipart.File) error {
		url, err := api.svc.UploadFile(ctx.Request().Context(), workFilesPath, up, file)
		if err != nil {
			return err
		}
		return ok(ctx, WorkFileResponse{FileURL: url}, "File uploaded successfully")
	})
}

func (api *materialApi) query(ctx echo.Context) error {
	mats, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	return ok(ctx, mats)
}
