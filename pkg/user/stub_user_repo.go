package user

import (
	"context"
	"sync"
	"time"
)

type StubUserRepository struct {
	mu     sync.RWMutex
	nextId int
	data   map[int]User
	nonces map[string]int
}

func NewStubUserRepository() *StubUserRepository {
	return &StubUserRepository{
		nextId: 0,
		data:   map[int]User{},
		nonces: map[string]int{},
	}
}

func (s *StubUserRepository) CreateUser(ctx context.Context, user User) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	user.Id = s.nextId
	s.data[s.nextId] = user
	return s.nextId, nil
}

func (s *StubUserRepository) GetUser(ctx context.Context, id int) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *StubUserRepository) GetUserByUid(ctx context.Context, uid string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.data {
		if user.Uid == uid {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *StubUserRepository) DeleteUser(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *StubUserRepository) StoreGoogleAuthNonce(ctx context.Context, userId int, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[userId]; !ok {
		return ErrUserNotFound
	}
	s.nonces[nonce] = userId
	return nil
}

func (s *StubUserRepository) StoreGoogleCredentials(ctx context.Context, nonce string, credentials GoogleCredentials) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userId, ok := s.nonces[nonce]
	if !ok {
		return 0, ErrUserNotFound
	}
	delete(s.nonces, nonce)
	user := s.data[userId]
	user.Google = credentials
	s.data[userId] = user
	return userId, nil
}

func (s *StubUserRepository) UpdateGoogleToken(ctx context.Context, userId int, accessToken string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.data[userId]
	if !ok {
		return ErrUserNotFound
	}
	user.Google.AccessToken = accessToken
	user.Google.TokenExpiry = &expiry
	s.data[userId] = user
	return nil
}

func (s *StubUserRepository) ClearGoogleCredentials(ctx context.Context, userId int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.data[userId]
	if !ok {
		return ErrUserNotFound
	}
	user.Google = GoogleCredentials{}
	s.data[userId] = user
	return nil
}

// SetGoogleCredentials is a test helper that overwrites the stored credentials of a user.
func (s *StubUserRepository) SetGoogleCredentials(userId int, credentials GoogleCredentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.data[userId]
	user.Google = credentials
	s.data[userId] = user
}
