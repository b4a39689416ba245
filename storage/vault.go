package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/split-session-service/interfaces"
)

// VaultStore implements a session store on a HashiCorp Vault KV v2 mount.
// Snapshots are kept as JSON strings under <mount>/data/<dataPath>/sessions/<id>,
// and writes use check-and-set so a create never overwrites a live session.
type VaultStore struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultStore creates a new Vault session store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - token: Vault token; if empty the client falls back to VAULT_TOKEN
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "split")
//   - log: Structured logger for operational insights
func NewVaultStore(address, token, mountPath, dataPath string, log *slog.Logger) (*VaultStore, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{
		Timeout: 30 * time.Second,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	return NewVaultStoreWithClient(client, mountPath, dataPath, log), nil
}

// NewVaultStoreWithClient creates a Vault session store on an existing client.
func NewVaultStoreWithClient(client *api.Client, mountPath, dataPath string, log *slog.Logger) *VaultStore {
	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultStore{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(client.Address(), "https://"), "http://"), mountPath, dataPath),
	}
}

// Create writes a new snapshot with cas=0, which Vault rejects if the key exists.
func (b *VaultStore) Create(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	if err := validKey(snapshot.ID); err != nil {
		return err
	}

	err = b.write(ctx, snapshot.ID, data, 0)
	if isCASMismatch(err) {
		return interfaces.ErrSessionExists
	}
	return err
}

// Fetch reads the latest version of a snapshot.
func (b *VaultStore) Fetch(ctx context.Context, id interfaces.SessionID) (*interfaces.SessionSnapshot, error) {
	if err := validKey(id); err != nil {
		return nil, interfaces.ErrSessionNotFound
	}

	data, _, err := b.read(ctx, id)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(id, data)
}

// Update replaces a snapshot, pinned to the version it currently holds.
func (b *VaultStore) Update(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	if err := validKey(snapshot.ID); err != nil {
		return err
	}

	_, version, err := b.read(ctx, snapshot.ID)
	if err != nil {
		return err
	}

	err = b.write(ctx, snapshot.ID, data, version)
	if isCASMismatch(err) {
		return fmt.Errorf("concurrent update of session %s: %w", snapshot.ID, interfaces.ErrBackendUnavailable)
	}
	return err
}

// Delete removes every version of a snapshot along with its metadata.
func (b *VaultStore) Delete(ctx context.Context, id interfaces.SessionID) error {
	if err := validKey(id); err != nil {
		return interfaces.ErrSessionNotFound
	}
	if _, _, err := b.read(ctx, id); err != nil {
		return err
	}

	path := b.metadataPath(id)
	if _, err := b.client.Logical().DeleteWithContext(ctx, path); err != nil {
		b.log.Error("Failed to delete from Vault",
			slog.String("path", path),
			"err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return nil
}

// Available checks if the Vault store is accessible.
// It uses the health endpoint to verify that Vault is initialized and unsealed.
func (b *VaultStore) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this store.
func (b *VaultStore) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

// LocationURI returns the URI that identifies this store.
func (b *VaultStore) LocationURI() string {
	return b.locationURI
}

func (b *VaultStore) read(ctx context.Context, id interfaces.SessionID) ([]byte, int64, error) {
	start := time.Now()
	path := b.dataKeyPath(id)

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", path),
			"err", err)
		return nil, 0, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		return nil, 0, interfaces.ErrSessionNotFound
	}

	// KV v2 keeps the payload under "data"; a destroyed version reports nil data
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, 0, interfaces.ErrSessionNotFound
	}

	content, ok := data["snapshot"].(string)
	if !ok {
		return nil, 0, fmt.Errorf("snapshot key not found in Vault data at %s", path)
	}

	var version int64
	if metadata, ok := secret.Data["metadata"].(map[string]interface{}); ok {
		switch v := metadata["version"].(type) {
		case json.Number:
			version, _ = v.Int64()
		case float64:
			version = int64(v)
		}
	}

	b.log.Debug("Fetched session from Vault",
		slog.String("path", path),
		slog.Int64("version", version),
		slog.Duration("duration", time.Since(start)))

	return []byte(content), version, nil
}

func (b *VaultStore) write(ctx context.Context, id interfaces.SessionID, content []byte, cas int64) error {
	path := b.dataKeyPath(id)

	secretData := map[string]interface{}{
		"options": map[string]interface{}{
			"cas": cas,
		},
		"data": map[string]interface{}{
			"snapshot": string(content),
		},
	}

	if _, err := b.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		if isCASMismatch(err) {
			return err
		}
		b.log.Error("Failed to write to Vault",
			slog.String("path", path),
			"err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return nil
}

func (b *VaultStore) dataKeyPath(id interfaces.SessionID) string {
	return fmt.Sprintf("%s/data/%s/sessions/%s", b.mountPath, b.dataPath, id)
}

func (b *VaultStore) metadataPath(id interfaces.SessionID) string {
	return fmt.Sprintf("%s/metadata/%s/sessions/%s", b.mountPath, b.dataPath, id)
}

func isCASMismatch(err error) bool {
	var respErr *api.ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusBadRequest {
		return false
	}
	for _, msg := range respErr.Errors {
		if strings.Contains(msg, "check-and-set") {
			return true
		}
	}
	return false
}
