package user

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrUserDataInvalid = errors.New("invalid user data")

type Service interface {
	GetCurrentUser(ctx context.Context) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	StoreGoogleAuthNonce(ctx context.Context, userId int, nonce string) error
	ConnectGoogle(ctx context.Context, nonce string, credentials GoogleCredentials) (int, error)
	UpdateGoogleToken(ctx context.Context, userId int, accessToken string, expiry time.Time) error
	DisconnectGoogle(ctx context.Context, userId int) error
}

type UserServiceImpl struct {
	repo Repo
}

func NewUserService(repo Repo) *UserServiceImpl {
	return &UserServiceImpl{repo: repo}
}

func (u *UserServiceImpl) GetCurrentUser(ctx context.Context) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return u.GetUser(ctx, userId)
}

func (u *UserServiceImpl) CreateUser(ctx context.Context, user User) (User, error) {
	if user.Uid == "" || user.Username == "" {
		return User{}, ErrUserDataInvalid
	}
	userId, err := u.repo.CreateUser(ctx, user)
	if err != nil {
		return User{}, err
	}
	user.Id = userId
	return user, nil
}

func (u *UserServiceImpl) GetUser(ctx context.Context, id int) (User, error) {
	return u.repo.GetUser(ctx, id)
}

func (u *UserServiceImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	return u.repo.GetUserByUid(ctx, uid)
}

func (u *UserServiceImpl) StoreGoogleAuthNonce(ctx context.Context, userId int, nonce string) error {
	return u.repo.StoreGoogleAuthNonce(ctx, userId, nonce)
}

// ConnectGoogle stores freshly exchanged OAuth credentials and enables sync for the user owning nonce.
func (u *UserServiceImpl) ConnectGoogle(ctx context.Context, nonce string, credentials GoogleCredentials) (int, error) {
	credentials.SyncEnabled = true
	return u.repo.StoreGoogleCredentials(ctx, nonce, credentials)
}

func (u *UserServiceImpl) UpdateGoogleToken(ctx context.Context, userId int, accessToken string, expiry time.Time) error {
	return u.repo.UpdateGoogleToken(ctx, userId, accessToken, expiry)
}

func (u *UserServiceImpl) DisconnectGoogle(ctx context.Context, userId int) error {
	return u.repo.ClearGoogleCredentials(ctx, userId)
}
