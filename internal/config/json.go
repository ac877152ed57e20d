package config

import (
	"os"

	"github.com/dmitrijs2005/savegamesync/internal/flagx"
	"github.com/goccy/go-json"
)

// JsonConfig is the on-disk form of Config. Pointer fields tell an absent key
// from an explicit zero, so a partial file only overrides what it names.
type JsonConfig struct {
	RegistryPath   *string `json:"registry_path"`
	SpecPath       *string `json:"spec_path"`
	TempDir        *string `json:"temp_dir"`
	StoreBackend   *string `json:"store_backend"`
	SQLitePath     *string `json:"sqlite_path"`
	S3RootUser     *string `json:"s3_root_user"`
	S3RootPassword *string `json:"s3_root_password"`
	S3Bucket       *string `json:"s3_bucket"`
	S3Region       *string `json:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint"`
	S3Prefix       *string `json:"s3_prefix"`
	S3UsePathStyle *bool   `json:"s3_use_path_style"`
	LogLevel       *string `json:"log_level"`
	LogFile        *string `json:"log_file"`
	ExportWorkers  *int    `json:"export_workers"`
	SavesPerGame   *int    `json:"saves_per_game"`
	OTLPEndpoint   *string `json:"otlp_endpoint"`
}

// parseJson overlays config with values from the JSON file named by -c or
// -config. Nothing happens when neither flag is given. Read or decode errors
// panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.RegistryPath, c.RegistryPath)
	setString(&config.SpecPath, c.SpecPath)
	setString(&config.TempDir, c.TempDir)
	setString(&config.StoreBackend, c.StoreBackend)
	setString(&config.SQLitePath, c.SQLitePath)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3Prefix, c.S3Prefix)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFile, c.LogFile)
	setString(&config.OTLPEndpoint, c.OTLPEndpoint)

	if c.S3UsePathStyle != nil {
		config.S3UsePathStyle = *c.S3UsePathStyle
	}
	if c.ExportWorkers != nil {
		config.ExportWorkers = *c.ExportWorkers
	}
	if c.SavesPerGame != nil {
		config.SavesPerGame = *c.SavesPerGame
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
