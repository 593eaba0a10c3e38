package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classboard/core/user"
)

func Test_home(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)
	assert.JSONEq(t, `{"success": true, "message": "Classboard API is running"}`, rec.Body.String())
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)
	app.createUser(t, "Hero", "hero@test.cd", "Pass1234!")

	tests := []httpTest{
		{
			name: "required fields", body: marchallObj(t, user.NewUser{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, Response{
				Message: msgValidationFailed,
				Errors:  map[string]string{"email": "this field is required", "password": "this field is required"},
			}),
		},
		{
			name: "invalid email", body: marchallObj(t, user.NewUser{Email: "lol", Password: "Pass1234!"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, Response{
				Message: msgValidationFailed,
				Errors:  map[string]string{"email": "email must be a valid email address"},
			}),
		},
		{
			name: "password too short", body: marchallObj(t, user.NewUser{Email: "new@test.cd", Password: "Pa1!"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, Response{
				Message: msgValidationFailed,
				Errors:  map[string]string{"password": "password must contain at least 8 characters"},
			}),
		},
		{
			name: "password too similar", body: marchallObj(t, user.NewUser{Name: "Jonathan", Email: "jonathan@test.cd", Password: "jonathan1"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, Response{
				Message: msgValidationFailed,
				Errors:  map[string]string{"password": "password cannot be similar to user attributes"},
			}),
		},
		{
			name: "duplicate email", body: marchallObj(t, user.NewUser{Email: " HERO@test.cd ", Password: "Pass1234!"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, Response{
				Message: "Email already exists",
				Errors:  map[string]string{"email": "Email already exists"},
			}),
		},
		{name: "malformed body", body: []byte(`{"email": `), wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("registered", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{Name: "Awe", Email: "Awe@Test.cd", Password: "Sup3r-Secret"})
		req, rec := newRequest(http.MethodPost, "/api/register", body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "password")

		var usr user.User
		decodeData(t, rec, &usr)
		assert.NotEmpty(t, usr.ID)
		assert.Equal(t, "awe@test.cd", usr.Email)
		assert.Equal(t, "Awe", usr.Name)
		assert.False(t, usr.IsAdmin)

		stored, err := app.deps.UserSvc.GetByEmail(req.Context(), "awe@test.cd")
		require.NoError(t, err)
		assert.NotEqual(t, []byte("Sup3r-Secret"), stored.PasswordHash)
		assert.NoError(t, stored.CheckPassword("Sup3r-Secret"))
	})
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	hero := app.createUser(t, "Hero", "hero@test.cd", "Pass1234!")

	invalidCreds := marchallObj(t, Response{Message: "Invalid email or password"})

	tests := []httpTest{
		{
			name: "required fields", body: marchallObj(t, LoginRequest{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, Response{
				Message: msgValidationFailed,
				Errors:  map[string]string{"email": "this field is required", "password": "this field is required"},
			}),
		},
		{
			name: "unknown email", body: marchallObj(t, LoginRequest{Email: "lol@test.cd", Password: "Pass1234!"}),
			wantCode: http.StatusUnauthorized, wantData: invalidCreds,
		},
		{
			name: "wrong password", body: marchallObj(t, LoginRequest{Email: hero.Email, Password: "lol"}),
			wantCode: http.StatusUnauthorized, wantData: invalidCreds,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("logged in", func(t *testing.T) {
		body := marchallObj(t, LoginRequest{Email: "HERO@test.cd", Password: "Pass1234!"})
		req, rec := newRequest(http.MethodPost, "/api/login", body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var data LoginResponse
		decodeData(t, rec, &data)
		assert.Equal(t, hero.ID, data.User.ID)
		require.NotEmpty(t, data.Token)

		claims := new(Claims)
		token, err := jwt.ParseWithClaims(data.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(testConfig().SecretKey), nil
		})
		require.NoError(t, err)
		assert.True(t, token.Valid)
		assert.Equal(t, jwt.SigningMethodHS256.Alg(), token.Method.Alg())
		assert.Equal(t, hero.ID, claims.Subject)
		assert.Equal(t, hero.Email, claims.Email)
		assert.Equal(t, hero.Name, claims.Name)
		assert.False(t, claims.IsAdmin)
	})
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodGet, "/api/users")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, Response{Success: true, Data: []user.User{}})}, rec)

	usr1 := app.createUser(t, "Awe", "awe@test.cd", "Pass1234!")
	usr2 := app.createUser(t, "King", "king@test.cd", "Pass1234!")

	req, rec = newRequest(http.MethodGet, "/api/users")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, Response{Success: true, Data: []user.User{usr2, usr1}})}, rec)
	assert.NotContains(t, rec.Body.String(), "password")
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)
	hero := app.createUser(t, "Hero", "hero@test.cd", "Pass1234!")

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "invalid token", token: "lol", wantCode: http.StatusUnauthorized},
		{name: "authenticated", token: app.getToken(t, hero), wantCode: http.StatusOK, wantData: marchallObj(t, Response{Success: true, Data: hero})},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)
	hero := app.createUser(t, "Hero", "hero@test.cd", "Pass1234!")

	staleClaims := app.auth.userClaims(hero, time.Now().Add(-2*testConfig().Server.JWTRefreshExpirationDelta).Unix())
	staleToken, err := app.auth.generateToken(staleClaims)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "refresh period expired", token: staleToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, Response{Message: "refresh has expired"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("token refreshed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/token-refresh", app.getToken(t, hero))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		// cannot guess new token.. just check that it's not empty
		var data LoginResponse
		decodeData(t, rec, &data)
		assert.NotEmpty(t, data.Token)
		assert.Equal(t, hero.ID, data.User.ID)
	})
}
