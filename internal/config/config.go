// Package config carries runtime settings for the SuiLocker core.
// Configuration is assembled in layers: compiled defaults, then an
// optional JSON file, then environment variables. Later sources win.
package config

import "time"

// Config holds everything the core needs to reach its collaborators and
// tune its routing policy.
//
// InlineThresholdBytes is the cost/latency trade-off between inline
// on-chain content and the blob network: encrypted payloads at or above
// the threshold are uploaded to blob storage, smaller ones are embedded
// directly in the entry. It is a tunable, not behavior to hard-code.
type Config struct {
	// RPCEndpoint is the ledger JSON-RPC URL.
	RPCEndpoint string

	// PackageID is the published locker package on the ledger.
	PackageID string

	// WalrusBaseURL is the blob-network aggregator endpoint.
	WalrusBaseURL string

	// WalrusNodes are the storage-node names shards are assigned to.
	WalrusNodes []string

	// StorageEpochs is how many epochs a registered blob is paid for.
	StorageEpochs uint64

	// InlineThresholdBytes routes encrypted payloads of this size or
	// larger to the blob network.
	InlineThresholdBytes int

	// CheckpointDBPath is the sqlite file holding upload checkpoints.
	CheckpointDBPath string

	// WaitTimeout bounds the finality-wait poll loop.
	WaitTimeout time.Duration

	// PollInterval is the delay between finality polls.
	PollInterval time.Duration

	// Backup settings for the S3-compatible snapshot exporter. Backup
	// is disabled while BackupBucket is empty.
	BackupBucket   string
	BackupRegion   string
	BackupEndpoint string
	BackupAccess   string
	BackupSecret   string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.RPCEndpoint = "http://127.0.0.1:9000"
	c.WalrusBaseURL = "http://127.0.0.1:9001"
	c.WalrusNodes = []string{"node-0", "node-1", "node-2", "node-3"}
	c.StorageEpochs = 5
	c.InlineThresholdBytes = 200 * 1024
	c.CheckpointDBPath = "suilocker.db"
	c.WaitTimeout = 60 * time.Second
	c.PollInterval = 500 * time.Millisecond
	c.BackupRegion = "us-east-1"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if a file is configured) and the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg); err != nil {
		return nil, err
	}
	parseEnv(cfg)
	return cfg, nil
}
