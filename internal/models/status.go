package models

import "time"

// Status reports the catalog state for the status endpoint and CLI.
type Status struct {
	Ready           bool          `json:"ready"`
	References      int           `json:"references"`
	Skipped         int           `json:"skipped"`
	SnapshotVersion string        `json:"snapshot_version,omitempty"`
	IndexType       string        `json:"index_type,omitempty"`
	Dimensions      int           `json:"dimensions,omitempty"`
	Encoder         string        `json:"encoder,omitempty"`
	BuiltAt         *time.Time    `json:"built_at,omitempty"`
	DiskUsageBytes  *int64        `json:"disk_usage_bytes,omitempty"`
	Config          *StatusConfig `json:"config,omitempty"`
}

// StatusConfig holds configuration echoed by status.
type StatusConfig struct {
	LogosDir          string  `json:"logos_dir,omitempty"`
	DatabasePath      string  `json:"database_path,omitempty"`
	VectorsPath       string  `json:"vectors_path,omitempty"`
	ConflictThreshold float64 `json:"conflict_threshold"`
	CriticalThreshold float64 `json:"critical_threshold"`
	EncoderType       string  `json:"encoder_type,omitempty"`
}
