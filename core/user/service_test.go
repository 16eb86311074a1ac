package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooloffice/core/user"
	"github.com/trezcool/schooloffice/tests"
)

func TestNewAdmin_Validate(t *testing.T) {
	validate, translator := testutil.NewValidator()

	tests := []struct {
		name    string
		na      user.NewAdmin
		wantErr map[string]string
	}{
		{name: "valid", na: user.NewAdmin{Username: " Boss ", Email: "Boss@School.test", Password: "Str0ng!Pass"}},
		{name: "required", na: user.NewAdmin{}, wantErr: map[string]string{"username": "this field is required", "password": "this field is required"}},
		{name: "invalid username", na: user.NewAdmin{Username: "bo$$", Password: "Str0ng!Pass"}, wantErr: map[string]string{"username": "only alphanumeric characters and underscores are allowed"}},
		{name: "too short", na: user.NewAdmin{Username: "boss", Password: "Sh0rt!"}, wantErr: map[string]string{"password": "password must contain at least 8 characters"}},
		{name: "whitespace", na: user.NewAdmin{Username: "boss", Password: "Str0ng! Pass"}, wantErr: map[string]string{"password": "password must not contain whitespace"}},
		{name: "numeric", na: user.NewAdmin{Username: "boss", Password: "1234567890"}, wantErr: map[string]string{"password": "password cannot be entirely numeric"}},
		{
			name:    "no special character",
			na:      user.NewAdmin{Username: "boss", Password: "Str0ngPass"},
			wantErr: map[string]string{"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		},
		{
			name:    "similar to name",
			na:      user.NewAdmin{Username: "boss", Name: "Amani Kabila", Password: "Amani!Kabila1"},
			wantErr: map[string]string{"password": "password cannot be similar to user attributes"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.na.Validate(validate)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "boss", tt.na.Username)
				assert.Equal(t, "boss@school.test", tt.na.Email)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, err)
			got := make(map[string]string)
			for _, fe := range vErrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.wantErr, got)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	now := time.Date(2026, 4, 1, 7, 45, 0, 0, time.UTC)
	user.NowFunc = func() time.Time { return now }
	defer func() { user.NowFunc = time.Now }()

	env := testutil.NewEnv()
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.UsrRepo, "admin", "admin@school.test", "Adm1n!pass", true, true)
	testutil.CreateUser(t, env.UsrRepo, "clerk", "clerk@school.test", "Cl3rk!pass", false, true)
	testutil.CreateUser(t, env.UsrRepo, "retired", "retired@school.test", "R3tired!pass", true, false)

	tests := []struct {
		name    string
		creds   user.Credentials
		wantErr error
	}{
		{name: "unknown user", creds: user.Credentials{Username: "nobody", Password: "Adm1n!pass"}, wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", creds: user.Credentials{Username: "admin", Password: "lol"}, wantErr: user.ErrInvalidCredentials},
		{name: "inactive", creds: user.Credentials{Username: "retired", Password: "R3tired!pass"}, wantErr: user.ErrInvalidCredentials},
		{name: "not an admin", creds: user.Credentials{Username: "clerk", Password: "Cl3rk!pass"}, wantErr: user.ErrNotAdmin},
		{name: "username", creds: user.Credentials{Username: "admin", Password: "Adm1n!pass"}},
		{name: "email", creds: user.Credentials{Username: "admin@school.test", Password: "Adm1n!pass"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := env.Users.Authenticate(ctx, tt.creds)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, admin.ID, usr.ID)
			assert.Equal(t, now, usr.LastLogin.Time)
		})
	}
}

func TestService_ResetPassword(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.UsrRepo, "admin", "admin@school.test", "Adm1n!pass", true, true)

	require.NoError(t, env.Users.ResetPassword(ctx, "admin@school.test", "N3w!Passw0rd"))
	refreshed, err := env.Users.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("N3w!Passw0rd"))
	assert.Error(t, refreshed.CheckPassword("Adm1n!pass"))

	assert.Equal(t, user.ErrNotFound, env.Users.ResetPassword(ctx, "nobody", "N3w!Passw0rd"))
}
