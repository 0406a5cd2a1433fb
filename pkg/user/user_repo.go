package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrUserNotFound = errors.New("user not found")

type Repo interface {
	CreateUser(ctx context.Context, user User) (int, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	DeleteUser(ctx context.Context, id int) error
	StoreGoogleAuthNonce(ctx context.Context, userId int, nonce string) error
	StoreGoogleCredentials(ctx context.Context, nonce string, credentials GoogleCredentials) (int, error)
	UpdateGoogleToken(ctx context.Context, userId int, accessToken string, expiry time.Time) error
	ClearGoogleCredentials(ctx context.Context, userId int) error
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

const selectUser = `SELECT id, uid, username, display_name, google_access_token, google_refresh_token,
				google_token_expiry, google_calendar_id, google_sync_enabled FROM users`

func scanUser(row pgx.Row) (User, error) {
	var user User
	var accessToken, refreshToken, calendarId *string
	err := row.Scan(
		&user.Id,
		&user.Uid,
		&user.Username,
		&user.DisplayName,
		&accessToken,
		&refreshToken,
		&user.Google.TokenExpiry,
		&calendarId,
		&user.Google.SyncEnabled,
	)
	if err != nil {
		return User{}, err
	}
	if accessToken != nil {
		user.Google.AccessToken = *accessToken
	}
	if refreshToken != nil {
		user.Google.RefreshToken = *refreshToken
	}
	if calendarId != nil {
		user.Google.CalendarId = *calendarId
	}
	return user, nil
}

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) (int, error) {
	query := `INSERT INTO users (uid, username, display_name) VALUES ($1, $2, $3) RETURNING id`
	var id int
	err := u.db.QueryRow(ctx, query, user.Uid, user.Username, user.DisplayName).Scan(&id)
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		return 0, err
	}
	return id, nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	user, err := scanUser(u.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("user with id %d not found", id)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	user, err := scanUser(u.db.QueryRow(ctx, selectUser+` WHERE uid = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Infof("user with uid %s not found", uid)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) DeleteUser(ctx context.Context, id int) error {
	result, err := u.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (u *UserRepoImpl) StoreGoogleAuthNonce(ctx context.Context, userId int, nonce string) error {
	result, err := u.db.Exec(ctx, `UPDATE users SET google_auth_nonce = $1 WHERE id = $2`, nonce, userId)
	if err != nil {
		return fmt.Errorf("failed to store Google auth nonce: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// StoreGoogleCredentials saves the tokens for the user who started the OAuth flow with nonce.
// The nonce is consumed so a callback cannot be replayed.
func (u *UserRepoImpl) StoreGoogleCredentials(ctx context.Context, nonce string, credentials GoogleCredentials) (int, error) {
	query := `UPDATE users SET google_access_token = $1, google_refresh_token = $2, google_token_expiry = $3,
				google_calendar_id = $4, google_sync_enabled = $5, google_auth_nonce = NULL
				WHERE google_auth_nonce = $6 RETURNING id`
	var calendarId *string
	if credentials.CalendarId != "" {
		calendarId = &credentials.CalendarId
	}
	var userId int
	err := u.db.QueryRow(ctx, query,
		credentials.AccessToken,
		credentials.RefreshToken,
		credentials.TokenExpiry,
		calendarId,
		credentials.SyncEnabled,
		nonce,
	).Scan(&userId)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	} else if err != nil {
		return 0, fmt.Errorf("failed to store Google credentials: %w", err)
	}
	return userId, nil
}

func (u *UserRepoImpl) UpdateGoogleToken(ctx context.Context, userId int, accessToken string, expiry time.Time) error {
	result, err := u.db.Exec(ctx, `UPDATE users SET google_access_token = $1, google_token_expiry = $2 WHERE id = $3`,
		accessToken, expiry, userId)
	if err != nil {
		return fmt.Errorf("failed to update Google token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (u *UserRepoImpl) ClearGoogleCredentials(ctx context.Context, userId int) error {
	query := `UPDATE users SET google_access_token = NULL, google_refresh_token = NULL, google_token_expiry = NULL,
				google_calendar_id = NULL, google_sync_enabled = FALSE, google_auth_nonce = NULL WHERE id = $1`
	result, err := u.db.Exec(ctx, query, userId)
	if err != nil {
		return fmt.Errorf("failed to clear Google credentials: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
