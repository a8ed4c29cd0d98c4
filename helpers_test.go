package authcore_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	authcore "github.com/dayforge/authcore"
	"github.com/dayforge/authcore/secret"
)

type testEnv struct {
	engine    *authcore.Engine
	directory *memoryDirectory
	redis     *miniredis.Miniredis
	sink      *authcore.ChannelSink
	config    authcore.Config
}

func testConfig(t *testing.T) authcore.Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}

	cfg := authcore.DefaultConfig()
	cfg.Token.PrivateKey = priv
	cfg.Token.PublicKey = pub
	// Cheap hashing parameters; these tests exercise behavior, not hardness.
	cfg.Session.HasherCost = bcrypt.MinCost
	cfg.Secret.Memory = 8 * 1024
	cfg.Secret.Time = 1
	cfg.Secret.Parallelism = 1
	return cfg
}

func newTestEnv(t *testing.T, cfg authcore.Config) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("sqlite open failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	directory := newMemoryDirectory()
	sink := authcore.NewChannelSink(128)

	engine, err := authcore.New().
		WithConfig(cfg).
		WithDB(db).
		WithRedis(rdb).
		WithDirectory(directory).
		WithAuditSink(sink).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine:    engine,
		directory: directory,
		redis:     mr,
		sink:      sink,
		config:    cfg,
	}
}

// seedAccount registers an account directly in the directory, bypassing the
// sign-up flow, and returns its ID.
func (env *testEnv) seedAccount(t *testing.T, identifier, secretValue string) string {
	t.Helper()

	hasher, err := secret.New(secret.Config{
		Memory:      env.config.Secret.Memory,
		Time:        env.config.Secret.Time,
		Parallelism: env.config.Secret.Parallelism,
		SaltLength:  env.config.Secret.SaltLength,
		KeyLength:   env.config.Secret.KeyLength,
		MinLength:   env.config.Secret.MinLength,
	})
	if err != nil {
		t.Fatalf("argon2 init failed: %v", err)
	}
	hash, err := hasher.Hash(secretValue)
	if err != nil {
		t.Fatalf("argon2 hash failed: %v", err)
	}

	record, err := env.directory.Create(context.Background(), authcore.CreateAccountInput{
		Identifier: identifier,
		SecretHash: hash,
	})
	if err != nil {
		t.Fatalf("seed account failed: %v", err)
	}
	return record.AccountID
}

// waitForAudit blocks until the dispatcher delivers an event of the given
// type. The dispatcher is asynchronous, so a short wait is expected.
func (env *testEnv) waitForAudit(t *testing.T, eventType string) authcore.AuditEvent {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-env.sink.Events():
			if event.EventType == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for audit event %q", eventType)
		}
	}
}

// memoryDirectory is a map-backed AccountDirectory with optional failure
// injection.
type memoryDirectory struct {
	mu       sync.RWMutex
	accounts map[string]authcore.AccountRecord
	links    map[string]string

	// failWith, when set, makes every method return it.
	failWith error
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{
		accounts: map[string]authcore.AccountRecord{},
		links:    map[string]string{},
	}
}

func (d *memoryDirectory) setFailure(err error) {
	d.mu.Lock()
	d.failWith = err
	d.mu.Unlock()
}

func (d *memoryDirectory) remove(accountID string) {
	d.mu.Lock()
	delete(d.accounts, accountID)
	d.mu.Unlock()
}

func linkKey(provider, subjectID string) string {
	return provider + "/" + subjectID
}

func (d *memoryDirectory) FindByID(_ context.Context, accountID string) (*authcore.AccountRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.failWith != nil {
		return nil, d.failWith
	}
	if record, ok := d.accounts[accountID]; ok {
		return &record, nil
	}
	return nil, nil
}

func (d *memoryDirectory) FindByIdentifier(_ context.Context, identifier string) (*authcore.AccountRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.failWith != nil {
		return nil, d.failWith
	}
	for _, record := range d.accounts {
		if record.Identifier == identifier {
			return &record, nil
		}
	}
	return nil, nil
}

func (d *memoryDirectory) FindByExternalIdentity(_ context.Context, provider, subjectID string) (*authcore.AccountRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.failWith != nil {
		return nil, d.failWith
	}
	if id, ok := d.links[linkKey(provider, subjectID)]; ok {
		record := d.accounts[id]
		return &record, nil
	}
	return nil, nil
}

func (d *memoryDirectory) Create(_ context.Context, input authcore.CreateAccountInput) (authcore.AccountRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return authcore.AccountRecord{}, d.failWith
	}
	for _, record := range d.accounts {
		if record.Identifier == input.Identifier {
			return authcore.AccountRecord{}, authcore.ErrDuplicateIdentifier
		}
	}
	record := authcore.AccountRecord{
		AccountID:   uuid.NewString(),
		Identifier:  input.Identifier,
		SecretHash:  input.SecretHash,
		DisplayName: input.DisplayName,
	}
	d.accounts[record.AccountID] = record
	return record, nil
}

func (d *memoryDirectory) CreateFromExternalIdentity(_ context.Context, identity authcore.ExternalIdentity) (authcore.AccountRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return authcore.AccountRecord{}, d.failWith
	}
	record := authcore.AccountRecord{
		AccountID:   uuid.NewString(),
		Identifier:  identity.Identifier,
		DisplayName: identity.DisplayName,
	}
	d.accounts[record.AccountID] = record
	d.links[linkKey(identity.Provider, identity.SubjectID)] = record.AccountID
	return record, nil
}

func (d *memoryDirectory) AttachExternalIdentity(_ context.Context, accountID, provider, subjectID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return d.failWith
	}
	d.links[linkKey(provider, subjectID)] = accountID
	return nil
}
