// services/snapshot_archiver.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"identity-sync-service/metrics"

	"github.com/rs/zerolog/log"
)

// SnapshotRecord is the archived form of one successful identity sync.
type SnapshotRecord struct {
	DID            string          `json:"did"`
	LinkedAccounts []LinkedAccount `json:"linked_accounts"`
	CustomMetadata map[string]any  `json:"custom_metadata"`
	WalletCount    int64           `json:"wallet_count"`
	SyncedAt       time.Time       `json:"synced_at"`
}

type SnapshotArchiver interface {
	Archive(ctx context.Context, record SnapshotRecord) error
}

// ObjectWriter is the subset of an object store the archiver needs.
type ObjectWriter interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// NoopArchiver is used when no archive bucket is configured.
type NoopArchiver struct{}

func (NoopArchiver) Archive(context.Context, SnapshotRecord) error { return nil }

// ObjectStoreArchiver writes each record as a JSON object under
// identity-snapshots/<did>/<unix-nanos>.json.
type ObjectStoreArchiver struct {
	store  ObjectWriter
	prefix string
}

func NewObjectStoreArchiver(store ObjectWriter) *ObjectStoreArchiver {
	return &ObjectStoreArchiver{store: store, prefix: "identity-snapshots"}
}

func (a *ObjectStoreArchiver) Archive(ctx context.Context, record SnapshotRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		metrics.RecordSnapshotArchive(false)
		return fmt.Errorf("failed to encode snapshot for %s: %w", record.DID, err)
	}

	key := SnapshotKey(a.prefix, record.DID, record.SyncedAt)
	if err := a.store.PutObject(ctx, key, body, "application/json"); err != nil {
		metrics.RecordSnapshotArchive(false)
		return err
	}

	metrics.RecordSnapshotArchive(true)
	log.Debug().Str("did", record.DID).Str("key", key).Msg("[ARCHIVE] snapshot stored")
	return nil
}

func SnapshotKey(prefix, did string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%d.json", prefix, did, at.UnixNano())
}
