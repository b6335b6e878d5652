package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/me/schedkit/pkg/model"
)

const ctxKeyClient ctxKey = "client"

// APIKeyEnv names the environment variable holding extra API keys as a
// comma-separated list of key or key=name entries.
const APIKeyEnv = "SCHEDKIT_API_KEYS"

// Client identifies the caller of a compute endpoint.
type Client struct {
	KeyID string // hash of the key, never the key itself
	Name  string
}

// ClientFromContext returns the authenticated client, or nil.
func ClientFromContext(ctx context.Context) *Client {
	if c, ok := ctx.Value(ctxKeyClient).(*Client); ok {
		return c
	}
	return nil
}

// APIKeyConfig maps accepted API keys to client names.
type APIKeyConfig struct {
	Keys map[string]string `json:"keys"`
}

// LoadAPIKeys reads keys from a JSON file of the form {"keys": {"key": "name"}}
// and then from SCHEDKIT_API_KEYS. An empty path skips the file.
func LoadAPIKeys(path string) (*APIKeyConfig, error) {
	cfg := &APIKeyConfig{Keys: make(map[string]string)}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read api keys: %w", err)
		}
		var fileCfg APIKeyConfig
		if err := json.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parse api keys %s: %w", path, err)
		}
		for k, v := range fileCfg.Keys {
			cfg.Keys[k] = v
		}
	}

	for _, entry := range strings.Split(os.Getenv(APIKeyEnv), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, name, _ := strings.Cut(entry, "=")
		if name == "" {
			name = "env"
		}
		cfg.Keys[key] = name
	}
	return cfg, nil
}

// Enabled reports whether any key is configured.
func (c *APIKeyConfig) Enabled() bool {
	return c != nil && len(c.Keys) > 0
}

// Lookup returns the client name for key.
func (c *APIKeyConfig) Lookup(key string) (string, bool) {
	name, ok := c.Keys[key]
	return name, ok
}

// hashKey creates a short hash of the key for logging purposes.
func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:8])
}

// apiKeyMiddleware requires a valid X-API-Key header.
// With no keys configured every caller is let through as "anonymous".
func apiKeyMiddleware(keys *APIKeyConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := RequestIDFromContext(r.Context())

			if !keys.Enabled() {
				ctx := context.WithValue(r.Context(), ctxKeyClient, &Client{KeyID: "none", Name: "anonymous"})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				respondError(w, reqID, http.StatusUnauthorized, &model.APIError{
					Code:    model.ErrUnauthorized,
					Message: "authentication required (X-API-Key header missing)",
				})
				return
			}

			name, ok := keys.Lookup(key)
			if !ok {
				logger.Warn("invalid api key", "key_hash", hashKey(key))
				respondError(w, reqID, http.StatusUnauthorized, &model.APIError{
					Code:    model.ErrUnauthorized,
					Message: "invalid api key",
				})
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyClient, &Client{KeyID: hashKey(key), Name: name})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
