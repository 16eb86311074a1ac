package user

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrNotAdmin           = errors.New("Access denied. Admin only.")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		// GetUserByUsernameOrEmail matches `uname` against both username and email.
		GetUserByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &Service{repo: repo}
}

// Authenticate checks the credentials and only lets active superusers in.
func (svc *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, creds.Username)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(creds.Password); err != nil || !usr.IsActive {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsSuperuser {
		return User{}, ErrNotAdmin
	}

	usr.LastLogin = null.TimeFrom(NowFunc().UTC())
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

// SaveAdmin creates a superuser or, when the username (or email) is taken, resets it as one.
func (svc *Service) SaveAdmin(ctx context.Context, na NewAdmin) (User, error) {
	now := NowFunc().UTC()
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, na.Username)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "finding user")
	}
	found := err == nil

	if !found {
		usr = User{Username: na.Username, CreatedAt: now}
	}
	if na.Email != "" {
		usr.Email = na.Email
	}
	if na.Name != "" {
		usr.Name = na.Name
	}
	usr.IsActive = true
	usr.IsSuperuser = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(na.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	if found {
		return svc.repo.UpdateUser(ctx, usr)
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = NowFunc().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}
