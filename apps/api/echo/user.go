package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/user"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	userApi struct {
		auth     *tokenAuth
		svc      *user.Service
		validate *validator.Validate
	}
)

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *tokenAuth, svc *user.Service, validate *validator.Validate) {
	api := userApi{
		auth:     auth,
		svc:      svc,
		validate: validate,
	}

	// un-authed endpoints
	g.POST("/register", api.register)
	g.POST("/login", api.login)
	g.GET("/users", api.query)

	// authed endpoints
	g.POST("/token-refresh", api.refreshToken, jwt)
	g.GET("/me", api.me, jwt)
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return created(ctx, usr, "User registered successfully")
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := authenticate(ctx.Request().Context(), data.Email, data.Password, api.svc)
	if err != nil {
		return err
	}
	token, err := api.auth.generateToken(api.auth.userClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ok(ctx, LoginResponse{Token: token, User: usr}, "Login successful")
}

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ok(ctx, users)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx, api.svc)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ok(ctx, LoginResponse{Token: token, User: usr})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ok(ctx, usr)
}
