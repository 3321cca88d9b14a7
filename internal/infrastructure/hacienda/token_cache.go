package hacienda

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	pkghacienda "github.com/jhoicas/Comprobantes-api/pkg/hacienda"
	"github.com/jhoicas/Comprobantes-api/pkg/logger"
)

const tokenKeyPrefix = "hacienda:token:"

// TokenCache almacén de tokens de acceso con expiración.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
}

// RedisTokenCache guarda los tokens en Redis para compartirlos entre instancias.
type RedisTokenCache struct {
	client *redis.Client
}

// NewRedisTokenCache crea la caché sobre un cliente existente.
func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{client: client}
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, tokenKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	return c.client.Set(ctx, tokenKeyPrefix+key, token, ttl).Err()
}

// MemoryTokenCache caché en proceso, usada cuando Redis no está configurado.
type MemoryTokenCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// NewMemoryTokenCache crea la caché en memoria.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryTokenCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return "", false, nil
	}
	return e.token, true, nil
}

func (c *MemoryTokenCache) Set(_ context.Context, key, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{token: token, expiresAt: c.now().Add(ttl)}
	return nil
}

// CachingAuthenticator reutiliza tokens vigentes y agrupa solicitudes concurrentes
// para las mismas credenciales en una sola llamada al IdP.
type CachingAuthenticator struct {
	next   pkghacienda.Authenticator
	cache  TokenCache
	margin time.Duration
	group  singleflight.Group
	log    *logger.Logger
}

// NewCachingAuthenticator envuelve next. margin es el tiempo antes del vencimiento en que el token deja de usarse.
func NewCachingAuthenticator(next pkghacienda.Authenticator, cache TokenCache, margin time.Duration, log *logger.Logger) *CachingAuthenticator {
	if margin <= 0 {
		margin = 30 * time.Second
	}
	return &CachingAuthenticator{next: next, cache: cache, margin: margin, log: log}
}

var _ pkghacienda.Authenticator = (*CachingAuthenticator)(nil)

func (a *CachingAuthenticator) Authenticate(ctx context.Context, creds pkghacienda.Credentials) (*pkghacienda.Token, error) {
	key := credentialKey(creds)
	if tok, ok, err := a.cache.Get(ctx, key); err == nil && ok {
		return &pkghacienda.Token{AccessToken: tok}, nil
	} else if err != nil {
		a.log.Warn().Err(err).Msg("hacienda: caché de tokens no disponible, se solicita token nuevo")
	}

	v, err, _ := a.group.Do(key, func() (any, error) {
		if tok, ok, _ := a.cache.Get(ctx, key); ok {
			return &pkghacienda.Token{AccessToken: tok}, nil
		}
		tok, err := a.next.Authenticate(ctx, creds)
		if err != nil {
			return nil, err
		}
		if ttl := tok.ExpiresIn - a.margin; ttl > 0 {
			if err := a.cache.Set(ctx, key, tok.AccessToken, ttl); err != nil {
				a.log.Warn().Err(err).Msg("hacienda: no se pudo guardar el token en caché")
			}
		}
		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pkghacienda.Token), nil
}

// credentialKey identifica las credenciales sin exponer la contraseña.
func credentialKey(c pkghacienda.Credentials) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%s", c.ClientID, c.Username, c.Password)))
	return hex.EncodeToString(sum[:16])
}
