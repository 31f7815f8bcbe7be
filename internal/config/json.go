package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// jsonConfigEnv names the environment variable pointing at the optional
// JSON config file.
const jsonConfigEnv = "SUILOCKER_CONFIG"

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// are strings like "3s" so files stay human-editable.
type jsonConfig struct {
	RPCEndpoint          *string  `json:"rpc_endpoint"`
	PackageID            *string  `json:"package_id"`
	WalrusBaseURL        *string  `json:"walrus_base_url"`
	WalrusNodes          []string `json:"walrus_nodes"`
	StorageEpochs        *uint64  `json:"storage_epochs"`
	InlineThresholdBytes *int     `json:"inline_threshold_bytes"`
	CheckpointDBPath     *string  `json:"checkpoint_db_path"`
	WaitTimeout          *string  `json:"wait_timeout"`
	PollInterval         *string  `json:"poll_interval"`
	BackupBucket         *string  `json:"backup_bucket"`
	BackupRegion         *string  `json:"backup_region"`
	BackupEndpoint       *string  `json:"backup_endpoint"`
	BackupAccess         *string  `json:"backup_access"`
	BackupSecret         *string  `json:"backup_secret"`
}

// parseJSON overlays cfg with values from the file named by
// SUILOCKER_CONFIG. Absent file reference means no overlay. Fields
// omitted from the file keep their current values.
func parseJSON(cfg *Config) error {
	path := os.Getenv(jsonConfigEnv)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}

	setString(&cfg.RPCEndpoint, jc.RPCEndpoint)
	setString(&cfg.PackageID, jc.PackageID)
	setString(&cfg.WalrusBaseURL, jc.WalrusBaseURL)
	if jc.WalrusNodes != nil {
		cfg.WalrusNodes = jc.WalrusNodes
	}
	if jc.StorageEpochs != nil {
		cfg.StorageEpochs = *jc.StorageEpochs
	}
	if jc.InlineThresholdBytes != nil {
		cfg.InlineThresholdBytes = *jc.InlineThresholdBytes
	}
	setString(&cfg.CheckpointDBPath, jc.CheckpointDBPath)
	if err := setDuration(&cfg.WaitTimeout, jc.WaitTimeout); err != nil {
		return fmt.Errorf("config %s: wait_timeout: %w", path, err)
	}
	if err := setDuration(&cfg.PollInterval, jc.PollInterval); err != nil {
		return fmt.Errorf("config %s: poll_interval: %w", path, err)
	}
	setString(&cfg.BackupBucket, jc.BackupBucket)
	setString(&cfg.BackupRegion, jc.BackupRegion)
	setString(&cfg.BackupEndpoint, jc.BackupEndpoint)
	setString(&cfg.BackupAccess, jc.BackupAccess)
	setString(&cfg.BackupSecret, jc.BackupSecret)
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
