// Package registry implements the revocable token-id registry backing
// shelfauth sessions.
//
// Each namespace (access, refresh) maps opaque token ids to their owning
// user with a TTL, plus a per-owner reverse index for bulk revocation. All
// multi-key mutations execute as a single Redis transaction or Lua script;
// callers never read-then-write. Revocation is visible to the next request
// on any server instance, since the registry is the shared source of trust.
package registry
