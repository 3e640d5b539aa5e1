package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when a token id is absent from its
// namespace. Never-issued, expired, and deleted ids are indistinguishable
// to the caller.
var ErrNotFound = errors.New("token not found")

// ErrUnavailable is returned when the backing store cannot be reached or
// misbehaves. The boundary layer owns the retry policy.
var ErrUnavailable = errors.New("token store unavailable")

// Namespace selects one of the two independent token registries.
type Namespace string

const (
	// Access is the namespace for short-lived access-token ids.
	Access Namespace = "at"
	// Refresh is the namespace for refresh-token ids.
	Refresh Namespace = "rt"
)

const deleteTokenScript = `
redis.call("SREM", KEYS[2], ARGV[1])
return redis.call("DEL", KEYS[1])
`

var deleteTokenLua = redis.NewScript(deleteTokenScript)

// revokeOwnerScript deletes every forward entry tracked for an owner except
// the ids listed in ARGV[2..]. Kept ids whose forward entry has already
// expired are swept from the index; the index key is dropped entirely when
// nothing survives. ARGV[1] is the forward-key prefix.
const revokeOwnerScript = `
local members = redis.call("SMEMBERS", KEYS[1])
local kept = 0
local revoked = 0

for _, id in ipairs(members) do
  local keep = false
  for i = 2, #ARGV do
    if ARGV[i] == id then
      keep = true
      break
    end
  end

  local forward = ARGV[1] .. id
  if keep then
    if redis.call("EXISTS", forward) == 1 then
      kept = kept + 1
    else
      redis.call("SREM", KEYS[1], id)
    end
  else
    revoked = revoked + redis.call("DEL", forward)
    redis.call("SREM", KEYS[1], id)
  end
end

if kept == 0 then
  redis.call("DEL", KEYS[1])
end

return revoked
`

var revokeOwnerLua = redis.NewScript(revokeOwnerScript)

// Registry is a Redis-backed, TTL-bound map from opaque token ids to their
// owning user, kept separately for the access and refresh namespaces. A
// per-owner reverse index (a Redis set of live token ids) supports bulk
// revocation without scanning. Presence in the registry is the source of
// trust for a token id; cryptographic validity alone is not sufficient.
type Registry struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a Registry on the given Redis client. prefix namespaces every
// key this registry touches.
func New(client redis.UniversalClient, prefix string) *Registry {
	if prefix == "" {
		prefix = "sa"
	}
	return &Registry{redis: client, prefix: prefix}
}

func (r *Registry) tokenKey(ns Namespace, tokenID string) string {
	return r.prefix + ":" + string(ns) + ":" + tokenID
}

func (r *Registry) tokenKeyPrefix(ns Namespace) string {
	return r.prefix + ":" + string(ns) + ":"
}

func (r *Registry) ownerKey(ns Namespace, ownerID string) string {
	return r.prefix + ":" + string(ns) + ":u:" + ownerID
}

// Put registers tokenID for ownerID with the given TTL. The forward entry
// and the owner-index membership are written in one transaction.
//
//	Performance: 1 Redis MULTI/EXEC (SET + SADD).
func (r *Registry) Put(ctx context.Context, ns Namespace, tokenID, ownerID string, ttl time.Duration) error {
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.tokenKey(ns, tokenID), ownerID, ttl)
		pipe.SAdd(ctx, r.ownerKey(ns, ownerID), tokenID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// PutPair registers a refresh/access id pair for ownerID in a single
// transaction. The refresh entry is queued ahead of the access entry, so a
// reader never observes an access token whose paired refresh token has not
// yet been committed.
func (r *Registry) PutPair(ctx context.Context, ownerID, refreshID, accessID string, refreshTTL, accessTTL time.Duration) error {
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.tokenKey(Refresh, refreshID), ownerID, refreshTTL)
		pipe.SAdd(ctx, r.ownerKey(Refresh, ownerID), refreshID)
		pipe.Set(ctx, r.tokenKey(Access, accessID), ownerID, accessTTL)
		pipe.SAdd(ctx, r.ownerKey(Access, ownerID), accessID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Get resolves tokenID to its owner. Returns ErrNotFound for ids that were
// never issued, have expired, or were deleted.
//
//	Performance: 1 Redis GET.
func (r *Registry) Get(ctx context.Context, ns Namespace, tokenID string) (string, error) {
	owner, err := r.redis.Get(ctx, r.tokenKey(ns, tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return owner, nil
}

// Delete removes tokenID from its namespace and from the owner index in one
// atomic script. Deleting an absent entry is a no-op.
//
//	Performance: 1 Lua EVALSHA (SREM + DEL).
func (r *Registry) Delete(ctx context.Context, ns Namespace, tokenID, ownerID string) error {
	keys := []string{r.tokenKey(ns, tokenID), r.ownerKey(ns, ownerID)}
	if err := deleteTokenLua.Run(ctx, r.redis, keys, tokenID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// DeleteAllForOwner revokes every live token the owner holds in ns, minus
// the ids in except. The whole sweep runs as one atomic script, so a
// concurrent Put for the same owner lands either entirely before or
// entirely after it. Safe to call for owners with no entries. Returns the
// number of forward entries actually removed.
func (r *Registry) DeleteAllForOwner(ctx context.Context, ns Namespace, ownerID string, except ...string) (int, error) {
	argv := make([]interface{}, 0, len(except)+1)
	argv = append(argv, r.tokenKeyPrefix(ns))
	for _, id := range except {
		argv = append(argv, id)
	}

	revoked, err := revokeOwnerLua.Run(ctx, r.redis, []string{r.ownerKey(ns, ownerID)}, argv...).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return revoked, nil
}

// OwnerTokenIDs returns the owner's live token ids in ns. The reverse index
// is advisory: ids whose forward entry has expired are swept from the set
// on this read and omitted from the result.
func (r *Registry) OwnerTokenIDs(ctx context.Context, ns Namespace, ownerID string) ([]string, error) {
	ownerKey := r.ownerKey(ns, ownerID)

	ids, err := r.redis.SMembers(ctx, ownerKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	pipe := r.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		existsCmds[i] = pipe.Exists(ctx, r.tokenKey(ns, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	live := make([]string, 0, len(ids))
	var stale []interface{}
	for i, cmd := range existsCmds {
		v, cmdErr := cmd.Result()
		if cmdErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, cmdErr)
		}
		if v == 1 {
			live = append(live, ids[i])
		} else {
			stale = append(stale, ids[i])
		}
	}

	if len(stale) > 0 {
		if err := r.redis.SRem(ctx, ownerKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return live, nil
}

// Ping returns a point-in-time store availability check and latency.
func (r *Registry) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
