package storage

import (
	"encoding/json"
	"fmt"

	"github.com/ruteri/split-session-service/interfaces"
)

// encodeSnapshot serializes a snapshot for blob-oriented stores.
func encodeSnapshot(snapshot *interfaces.SessionSnapshot) ([]byte, error) {
	if snapshot == nil || snapshot.ID == "" {
		return nil, fmt.Errorf("snapshot has no session id")
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot %s: %w", snapshot.ID, err)
	}
	return data, nil
}

// decodeSnapshot parses data and checks that it belongs to id.
func decodeSnapshot(id interfaces.SessionID, data []byte) (*interfaces.SessionSnapshot, error) {
	var snapshot interfaces.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", id, err)
	}
	if snapshot.ID != id {
		return nil, fmt.Errorf("stored snapshot %s carries id %q", id, snapshot.ID)
	}
	return &snapshot, nil
}

// validKey rejects IDs that are unsafe as file names or object keys.
func validKey(id interfaces.SessionID) error {
	if id == "" || len(id) > 64 {
		return fmt.Errorf("invalid session id %q", id)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		default:
			return fmt.Errorf("invalid session id %q", id)
		}
	}
	return nil
}
