package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/material"
	"github.com/trezcool/classboard/core/user"
	"github.com/trezcool/classboard/core/work"
	logsvc "github.com/trezcool/classboard/services/logger"
	storagesvc "github.com/trezcool/classboard/services/storage"
	"github.com/trezcool/classboard/storage"
)

const testStorageURL = "https://files.test"

var errMissingToken = Response{Message: "missing or malformed jwt"}

type testApp struct {
	*Server
	repos *storage.Repositories
	files *storagesvc.MemoryStorage
}

func testConfig() *core.Config {
	return &core.Config{
		AppName:   "Classboard",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "test-secret-key",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			DisableReqLogs:            true,
		},
		Storage: core.StorageConfig{
			Provider:      "memory",
			MaxUploadSize: "4M",
		},
	}
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := testConfig()

	// set up validator
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	work.InitValidators(validate, translator)

	// set up repos & services
	repos := storage.NewMemoryRepositories()
	files := storagesvc.NewMemoryStorage(testStorageURL)

	srv := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logsvc.New(ioutil.Discard, "TEST : ", conf),
		UserSvc:     user.NewService(repos.Users),
		MaterialSvc: material.NewService(repos.Materials, files),
		WorkSvc:     work.NewService(repos.Works),
		Validate:    validate,
		Translator:  translator,
	})
	return &testApp{Server: srv, repos: repos, files: files}
}

func (app *testApp) createUser(t *testing.T, name, email, pwd string) user.User {
	t.Helper()
	usr := user.User{Name: name, Email: email, CreatedAt: time.Now().UTC()}
	require.NoError(t, usr.SetPassword(pwd))
	usr, err := app.repos.Users.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func (app *testApp) createWork(t *testing.T, subject string) work.Work {
	t.Helper()
	w, err := app.deps.WorkSvc.Create(context.Background(), work.NewWork{
		Subject:  subject,
		Work:     "Exercises 1 to 10",
		Deadline: "next friday",
		AddedBy:  "mwalimu",
	})
	require.NoError(t, err)
	return w
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := app.auth.generateToken(app.auth.userClaims(usr))
	require.NoError(t, err)
	return token
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest builds a multipart request; an empty filename sends no file part.
func newUploadRequest(t *testing.T, path, filename string, content []byte, fields map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, httptest.NewRecorder()
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// decodeData unmarshals the data of a Response into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
