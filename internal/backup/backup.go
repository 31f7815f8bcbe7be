// Package backup exports encrypted locker snapshots to S3-compatible
// object storage. Entry content in a snapshot is the wire form (hex
// envelopes and blob ids), so the bucket only ever holds ciphertext;
// plaintext never reaches the exporter.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/suilocker/suilocker/internal/config"
	"github.com/suilocker/suilocker/internal/locker"
	"github.com/suilocker/suilocker/internal/logging"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectStore {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// objectStore is the slice of the S3 client the exporter uses.
type objectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Snapshot is one exported locker state. Entries keep their wire-form
// content; Plaintext is stripped before marshaling.
type Snapshot struct {
	Address   string          `json:"address"`
	CreatedAt time.Time       `json:"created_at"`
	Vaults    []*locker.Vault `json:"vaults"`
	Entries   []*locker.Entry `json:"entries"`
}

// Exporter writes and reads snapshots in a configured bucket.
type Exporter struct {
	cfg *config.Config
	log logging.Logger
}

func NewExporter(cfg *config.Config, log logging.Logger) *Exporter {
	return &Exporter{cfg: cfg, log: log.With("component", "backup")}
}

// Enabled reports whether backup is configured.
func (e *Exporter) Enabled() bool { return e.cfg.BackupBucket != "" }

// storageKey partitions snapshots by date and randomizes within the day.
func storageKey(address string) string {
	d := time.Now()
	return fmt.Sprintf("snapshots/%s/%d/%d/%d/%v", address, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (e *Exporter) client(ctx context.Context) (objectStore, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(e.cfg.BackupRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			e.cfg.BackupAccess,
			e.cfg.BackupSecret,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if e.cfg.BackupEndpoint != "" {
			o.BaseEndpoint = aws.String(e.cfg.BackupEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Export uploads the snapshot and returns its storage key. Plaintext is
// cleared on copies of the entries; the caller's slice is not modified.
func (e *Exporter) Export(ctx context.Context, snap *Snapshot) (string, error) {
	if !e.Enabled() {
		return "", fmt.Errorf("backup is not configured")
	}

	stripped := make([]*locker.Entry, len(snap.Entries))
	for i, entry := range snap.Entries {
		clone := *entry
		clone.Plaintext = nil
		stripped[i] = &clone
	}
	out := *snap
	out.Entries = stripped
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}

	body, err := json.Marshal(&out)
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot: %w", err)
	}

	client, err := e.client(ctx)
	if err != nil {
		return "", fmt.Errorf("building storage client: %w", err)
	}

	key := storageKey(snap.Address)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(e.cfg.BackupBucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return "", fmt.Errorf("uploading snapshot: %w", err)
	}

	e.log.Info(ctx, "snapshot exported", "key", key,
		"vaults", len(out.Vaults), "entries", len(out.Entries), "bytes", len(body))
	return key, nil
}

// Restore downloads and unmarshals the snapshot stored under key.
func (e *Exporter) Restore(ctx context.Context, key string) (*Snapshot, error) {
	if !e.Enabled() {
		return nil, fmt.Errorf("backup is not configured")
	}

	client, err := e.client(ctx)
	if err != nil {
		return nil, fmt.Errorf("building storage client: %w", err)
	}

	obj, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.cfg.BackupBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("downloading snapshot %s: %w", key, err)
	}
	defer obj.Body.Close()

	body, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", key, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot %s: %w", key, err)
	}

	e.log.Info(ctx, "snapshot restored", "key", key,
		"vaults", len(snap.Vaults), "entries", len(snap.Entries))
	return &snap, nil
}
