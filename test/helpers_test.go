//go:build integration
// +build integration

package test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	shelfauth "github.com/shelfd/shelfauth"
	"github.com/shelfd/shelfauth/password"
)

func newIntegrationEngine(t *testing.T) (*shelfauth.Engine, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := shelfauth.DefaultConfig()
	cfg.Token.AccessTTL = 10 * time.Minute
	cfg.Token.RefreshTTL = 2 * time.Hour
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.Issuer = "shelfauth-integration"
	cfg.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}

	engine, err := shelfauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(newFakeProvider()).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}

	return engine, mr, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func seedAccount(t *testing.T, engine *shelfauth.Engine, email, pw, role string) shelfauth.UserRecord {
	t.Helper()
	user, err := engine.Register(context.Background(), email, pw, role)
	if err != nil {
		t.Fatalf("register %s failed: %v", email, err)
	}
	return user
}

type fakeProvider struct {
	mu      sync.Mutex
	byEmail map[string]shelfauth.UserRecord
	byID    map[string]shelfauth.UserRecord
	nextID  int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		byEmail: map[string]shelfauth.UserRecord{},
		byID:    map[string]shelfauth.UserRecord{},
	}
}

func (p *fakeProvider) GetUserByEmail(_ context.Context, email string) (shelfauth.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byEmail[email]
	if !ok {
		return shelfauth.UserRecord{}, shelfauth.ErrUserNotFound
	}
	return user, nil
}

func (p *fakeProvider) GetUserByID(_ context.Context, userID string) (shelfauth.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byID[userID]
	if !ok {
		return shelfauth.UserRecord{}, shelfauth.ErrUserNotFound
	}
	return user, nil
}

func (p *fakeProvider) CreateUser(_ context.Context, input shelfauth.CreateUserInput) (shelfauth.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byEmail[input.Email]; ok {
		return shelfauth.UserRecord{}, shelfauth.ErrUserExists
	}
	p.nextID++
	user := shelfauth.UserRecord{
		UserID:       fmt.Sprintf("u-%d", p.nextID),
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Salt:         input.Salt,
		Role:         input.Role,
	}
	p.byEmail[user.Email] = user
	p.byID[user.UserID] = user
	return user, nil
}

func (p *fakeProvider) UpdateCredential(_ context.Context, userID, passwordHash, salt string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byID[userID]
	if !ok {
		return shelfauth.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	user.Salt = salt
	p.byID[userID] = user
	p.byEmail[user.Email] = user
	return nil
}
