// Package vault loads venue API credentials from HashiCorp Vault's KV v2
// secrets engine, so exchange keys never need to live in a config file
// or plain environment variable. It is optional: when Vault integration
// is disabled (a nil *Client), LoadVenueCredentials returns a zero value and
// the venue adapter falls back to whatever credentials its own
// configuration carries (§9: "optional Vault-backed secret overlay for
// venue credentials").
package vault

import (
	"context"
	"fmt"
	"os"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/arbctl/internal/metrics"
)

// Config holds Vault connection and authentication settings.
type Config struct {
	Enabled    bool
	Address    string // e.g. "https://vault.example.com:8200"
	Token      string // used when AuthMethod is "token" or empty
	AuthMethod string // "token", "kubernetes", "approle"
	MountPath  string // KV v2 mount, default "secret"
	SecretPath string // base path under the mount, e.g. "arbctl/production"
	Namespace  string // Vault Enterprise namespace, optional
}

// Client wraps a HashiCorp Vault API client scoped to one mount/path.
type Client struct {
	api    *vaultapi.Client
	config Config
}

// NewClient authenticates to Vault per cfg.AuthMethod and returns a
// Client ready to read secrets. Returns an error if cfg.Enabled is
// false — callers should check cfg.Enabled themselves before calling
// NewClient if Vault integration might be off.
func NewClient(cfg Config) (*Client, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("vault: integration is not enabled")
	}
	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}

	vaultCfg := vaultapi.DefaultConfig()
	vaultCfg.Address = cfg.Address

	api, err := vaultapi.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("vault: new client: %w", err)
	}
	if cfg.Namespace != "" {
		api.SetNamespace(cfg.Namespace)
	}

	switch cfg.AuthMethod {
	case "token", "":
		if cfg.Token == "" {
			cfg.Token = os.Getenv("VAULT_TOKEN")
		}
		if cfg.Token == "" {
			return nil, fmt.Errorf("vault: VAULT_TOKEN not set for token authentication")
		}
		api.SetToken(cfg.Token)
	case "kubernetes":
		if err := authenticateKubernetes(api); err != nil {
			return nil, fmt.Errorf("vault: kubernetes auth: %w", err)
		}
	case "approle":
		if err := authenticateAppRole(api); err != nil {
			return nil, fmt.Errorf("vault: approle auth: %w", err)
		}
	default:
		return nil, fmt.Errorf("vault: unsupported auth method %q", cfg.AuthMethod)
	}

	log.Info().
		Str("address", cfg.Address).
		Str("auth_method", cfg.AuthMethod).
		Str("mount_path", cfg.MountPath).
		Msg("vault client initialized")

	return &Client{api: api, config: cfg}, nil
}

// GetSecret reads a KV v2 secret at path, relative to the configured
// SecretPath.
func (c *Client) GetSecret(ctx context.Context, path string) (map[string]interface{}, error) {
	fullPath := fmt.Sprintf("%s/data/%s/%s", c.config.MountPath, c.config.SecretPath, path)

	startedAt := time.Now()
	secret, err := c.api.Logical().ReadWithContext(ctx, fullPath)
	metrics.VaultRequestDurationMs.Observe(float64(time.Since(startedAt).Milliseconds()))
	if err != nil {
		metrics.VaultRequestErrors.Inc()
		return nil, fmt.Errorf("vault: read %s: %w", fullPath, err)
	}
	if secret == nil {
		metrics.VaultRequestErrors.Inc()
		return nil, fmt.Errorf("vault: secret not found at %s", fullPath)
	}

	if data, ok := secret.Data["data"].(map[string]interface{}); ok {
		return data, nil
	}
	return secret.Data, nil
}

// GetSecretString reads a single string field from a secret.
func (c *Client) GetSecretString(ctx context.Context, path, key string) (string, error) {
	data, err := c.GetSecret(ctx, path)
	if err != nil {
		return "", err
	}
	value, ok := data[key].(string)
	if !ok {
		return "", fmt.Errorf("vault: key %q not found or not a string at %s", key, path)
	}
	return value, nil
}

func authenticateKubernetes(api *vaultapi.Client) error {
	jwt, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/token")
	if err != nil {
		return fmt.Errorf("read service account token: %w", err)
	}
	role := os.Getenv("VAULT_K8S_ROLE")
	if role == "" {
		role = "arbctl"
	}

	secret, err := api.Logical().Write("auth/kubernetes/login", map[string]interface{}{
		"jwt":  string(jwt),
		"role": role,
	})
	if err != nil {
		return fmt.Errorf("kubernetes login: %w", err)
	}
	if secret == nil || secret.Auth == nil {
		return fmt.Errorf("kubernetes login returned no token")
	}
	api.SetToken(secret.Auth.ClientToken)
	return nil
}

func authenticateAppRole(api *vaultapi.Client) error {
	roleID := os.Getenv("VAULT_ROLE_ID")
	secretID := os.Getenv("VAULT_SECRET_ID")
	if roleID == "" || secretID == "" {
		return fmt.Errorf("VAULT_ROLE_ID and VAULT_SECRET_ID must be set")
	}

	secret, err := api.Logical().Write("auth/approle/login", map[string]interface{}{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		return fmt.Errorf("approle login: %w", err)
	}
	if secret == nil || secret.Auth == nil {
		return fmt.Errorf("approle login returned no token")
	}
	api.SetToken(secret.Auth.ClientToken)
	return nil
}
