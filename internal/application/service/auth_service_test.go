package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finveo/invoiceflow-api/pkg/apperror"
	"github.com/finveo/invoiceflow-api/pkg/utils"
)

func newAuthService() (*AuthService, *fakeUserRepo) {
	userRepo := newFakeUserRepo()
	jwtManager := utils.NewJWTManager("test-secret", time.Hour)
	return NewAuthService(userRepo, jwtManager), userRepo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService()

	user, err := svc.Register(context.Background(), &RegisterInput{
		FullName: "Asha Nair",
		Email:    "asha@example.com",
		Password: "s3cret-pass",
		GSTIN:    "29ABCDE1234F1Z5",
	})
	require.NoError(t, err)
	assert.Equal(t, "user", user.Role)
	assert.True(t, user.Active)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	out, err := svc.Login(context.Background(), &LoginInput{
		Email:    "asha@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.AccessToken)
	assert.Equal(t, user.ID, out.User.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newAuthService()

	_, err := svc.Register(context.Background(), &RegisterInput{
		FullName: "Asha Nair", Email: "asha@example.com", Password: "s3cret-pass",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), &RegisterInput{
		FullName: "Impostor", Email: "asha@example.com", Password: "other-pass",
	})
	require.Error(t, err)
	assert.Equal(t, 409, apperror.GetAppError(err).Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newAuthService()

	_, err := svc.Register(context.Background(), &RegisterInput{
		FullName: "Asha Nair", Email: "asha@example.com", Password: "s3cret-pass",
	})
	require.NoError(t, err)

	// Wrong password and unknown email fail identically
	_, err = svc.Login(context.Background(), &LoginInput{Email: "asha@example.com", Password: "wrong"})
	assert.Equal(t, apperror.ErrInvalidCredentials, err)

	_, err = svc.Login(context.Background(), &LoginInput{Email: "nobody@example.com", Password: "s3cret-pass"})
	assert.Equal(t, apperror.ErrInvalidCredentials, err)
}

func TestLogin_InactiveAccount(t *testing.T) {
	svc, userRepo := newAuthService()

	user, err := svc.Register(context.Background(), &RegisterInput{
		FullName: "Asha Nair", Email: "asha@example.com", Password: "s3cret-pass",
	})
	require.NoError(t, err)

	user.Active = false
	require.NoError(t, userRepo.Create(context.Background(), user))

	_, err = svc.Login(context.Background(), &LoginInput{Email: "asha@example.com", Password: "s3cret-pass"})
	assert.Equal(t, apperror.ErrForbidden, err)
}
