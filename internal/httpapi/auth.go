package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/arawak/singora/internal/config"
)

type principalKeyType struct{}

var principalKey = principalKeyType{}

const (
	PermCanRead     = "can_read"
	PermCanDownload = "can_download"
	PermCanUpload   = "can_upload"
	PermCanDelete   = "can_delete"
)

var allPermissions = []string{PermCanRead, PermCanDownload, PermCanUpload, PermCanDelete}

type Principal struct {
	ID          string
	Permissions map[string]struct{}
	Source      string
}

func newPrincipal(id, source string, perms []string) *Principal {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return &Principal{ID: id, Permissions: set, Source: source}
}

func newPrincipalFromAPIKey(key *APIKey) *Principal {
	return newPrincipal(key.ID, "apikey", key.Permissions)
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

func (p *Principal) HasPermission(perm string) bool {
	if p == nil {
		return false
	}
	_, ok := p.Permissions[perm]
	return ok
}

// authenticate resolves a presented key. The shared secret grants every
// permission; key file entries grant what they list.
func (s *Server) authenticate(presented string) *Principal {
	if presented == "" {
		return nil
	}
	if s.cfg.APIKey != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(s.cfg.APIKey)) == 1 {
		return newPrincipal("shared", "static", allPermissions)
	}
	if key, ok := s.apiKeys.Lookup(presented); ok {
		return newPrincipalFromAPIKey(key)
	}
	return nil
}

func (s *Server) authMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch s.cfg.AuthMode {
			case config.AuthNone:
				next.ServeHTTP(w, r)
			case config.AuthAPIKey:
				p := s.authenticate(r.Header.Get(s.cfg.APIKeyHeader))
				if p == nil {
					writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key", nil)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
			default:
				writeError(w, http.StatusUnauthorized, "unauthorized", "auth mode not supported", nil)
			}
		})
	}
}

func (s *Server) requirePermissions(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.cfg.AuthMode == config.AuthNone {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key", nil)
				return
			}
			for _, perm := range perms {
				if !p.HasPermission(perm) {
					writeError(w, http.StatusForbidden, "forbidden", "missing permission", map[string]any{"permission": perm})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
