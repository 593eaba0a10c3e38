package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("Email already exists")
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists if a User with this email exists.
		CheckEmailUniqueness(ctx context.Context, email string) error
		// CreateUser returns ErrEmailExists on an email clash.
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers returns all users, newest first.
		QueryUsers(ctx context.Context) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func emailExistsError() error {
	return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
}

func (svc *Service) CheckEmailUniqueness(ctx context.Context, email string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return emailExistsError()
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		// lost a race against a concurrent registration
		if errors.Cause(err) == ErrEmailExists {
			return User{}, emailExistsError()
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

// AddOrUpdate creates the user with nu's email or, if it exists, resets its name, password and admin flag.
// A blank name keeps the current one. nu goes through the same checks as a registration, except email uniqueness.
func (svc *Service) AddOrUpdate(ctx context.Context, validate *validator.Validate, nu NewUser, isAdmin bool) (User, error) {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	usr, err := svc.GetByEmail(ctx, nu.Email)
	isNew := errors.Cause(err) == ErrNotFound
	if err != nil && !isNew {
		return User{}, err
	}
	if nu.Name == "" {
		nu.Name = usr.Name
	}
	if err = validate.Struct(nu); err != nil {
		return User{}, err
	}

	if isNew {
		usr = User{Email: nu.Email, CreatedAt: time.Now().UTC()}
	}
	usr.Name = nu.Name
	usr.IsAdmin = isAdmin
	if err = usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	if isNew {
		return svc.repo.CreateUser(ctx, usr)
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}
