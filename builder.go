package shelfauth

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/shelfd/shelfauth/jwt"
	"github.com/shelfd/shelfauth/password"
	"github.com/shelfd/shelfauth/registry"
	"github.com/shelfd/shelfauth/session"
)

// Builder assembles an Engine. The registry handle, user provider, and
// audit sink are injected here; nothing in the package reaches for global
// state.
type Builder struct {
	config       Config
	redis        redis.UniversalClient
	userProvider UserProvider
	auditSink    AuditSink
	built        bool
}

// New starts a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the full configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing the token registry.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the host application's user store.
func (b *Builder) WithUserProvider(p UserProvider) *Builder {
	b.userProvider = p
	return b
}

// WithAuditSink sets the destination for audit events. Without one, events
// are dispatched to a NoOpSink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration, constructs every component, and wires
// the Engine. A Builder can build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	reg := registry.New(b.redis, cfg.Token.RedisPrefix)

	sessions, err := session.NewManager(reg, cfg.Token.AccessTTL, cfg.Token.RefreshTTL)
	if err != nil {
		return nil, err
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	// Fixed decoy credential for the unknown-email login path.
	dummyHash, dummySalt, err := hasher.Hash("shelfauth-decoy-credential")
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		registry:     reg,
		sessions:     sessions,
		hasher:       hasher,
		jwtManager:   jwtManager,
		userProvider: b.userProvider,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
		dummyHash:    dummyHash,
		dummySalt:    dummySalt,
	}

	b.built = true

	return engine, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
