package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// parseEnv overlays cfg with environment variables. Env wins over both
// defaults and the JSON file.
func parseEnv(cfg *Config) {
	envString(&cfg.RPCEndpoint, "SUILOCKER_RPC_ENDPOINT")
	envString(&cfg.PackageID, "SUILOCKER_PACKAGE_ID")
	envString(&cfg.WalrusBaseURL, "SUILOCKER_WALRUS_URL")
	if v := os.Getenv("SUILOCKER_WALRUS_NODES"); v != "" {
		cfg.WalrusNodes = strings.Split(v, ",")
	}
	if v := os.Getenv("SUILOCKER_STORAGE_EPOCHS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.StorageEpochs = n
		}
	}
	if v := os.Getenv("SUILOCKER_INLINE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.InlineThresholdBytes = n
		}
	}
	envString(&cfg.CheckpointDBPath, "SUILOCKER_CHECKPOINT_DB")
	envDuration(&cfg.WaitTimeout, "SUILOCKER_WAIT_TIMEOUT")
	envDuration(&cfg.PollInterval, "SUILOCKER_POLL_INTERVAL")
	envString(&cfg.BackupBucket, "SUILOCKER_BACKUP_BUCKET")
	envString(&cfg.BackupRegion, "SUILOCKER_BACKUP_REGION")
	envString(&cfg.BackupEndpoint, "SUILOCKER_BACKUP_ENDPOINT")
	envString(&cfg.BackupAccess, "SUILOCKER_BACKUP_ACCESS")
	envString(&cfg.BackupSecret, "SUILOCKER_BACKUP_SECRET")
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
