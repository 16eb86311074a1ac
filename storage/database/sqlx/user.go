package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/user"
)

const userColumns = "id, username, email, name, password_hash, is_active, is_superuser, last_login, created_at, updated_at"

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	var created user.User
	err := repo.exec.GetContext(ctx, &created, `
		INSERT INTO users (id, username, email, name, password_hash, is_active, is_superuser, last_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+userColumns,
		usr.ID, usr.Username, usr.Email, usr.Name, usr.PasswordHash, usr.IsActive, usr.IsSuperuser,
		usr.LastLogin, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC())
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return created, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var usr user.User
	err := repo.exec.GetContext(ctx, &usr, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	var usr user.User
	err := repo.exec.GetContext(ctx, &usr, `
		SELECT `+userColumns+` FROM users
		WHERE username = $1 OR LOWER(email) = $1
		ORDER BY username = $1 DESC
		LIMIT 1`,
		uname)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	var updated user.User
	err := repo.exec.GetContext(ctx, &updated, `
		UPDATE users
		SET username = $2, email = $3, name = $4, password_hash = $5, is_active = $6, is_superuser = $7,
		    last_login = $8, updated_at = $9
		WHERE id = $1
		RETURNING `+userColumns,
		usr.ID, usr.Username, usr.Email, usr.Name, usr.PasswordHash, usr.IsActive, usr.IsSuperuser,
		usr.LastLogin, usr.UpdatedAt.UTC())
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return updated, nil
}
