// Package config loads runtime configuration for savesync.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Short command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "registry_path": "local-game-list.txt",
//	  "spec_path": "save-specs.yaml",
//	  "store_backend": "s3",
//	  "s3_bucket": "saves",
//	  "s3_base_endpoint": "http://127.0.0.1:9000/",
//	  "s3_use_path_style": true,
//	  "saves_per_game": 5,
//	  "otlp_endpoint": "http://127.0.0.1:4318"
//	}
package config

// Store backends.
const (
	BackendS3     = "s3"
	BackendSQLite = "sqlite"
)

// Config holds runtime settings.
//
// Fields:
//   - RegistryPath: local game list (game name to install dir).
//   - SpecPath: YAML document with the save spec of every supported game.
//   - TempDir: parent of per-operation workspaces; empty means os.TempDir.
//   - StoreBackend: "s3" or "sqlite".
//   - SQLitePath: database file used by the sqlite backend.
//   - S3*: credentials, bucket and endpoint of the S3-compatible backend.
//     S3Prefix is the private folder all blobs live under.
//   - LogLevel / LogFile: slog level and optional rotated log file.
//   - ExportWorkers: parallel downloads during a full export.
//   - SavesPerGame: retention cap per game; 0 keeps everything.
//   - OTLPEndpoint: OTLP/HTTP collector for metrics; empty disables export.
type Config struct {
	RegistryPath   string
	SpecPath       string
	TempDir        string
	StoreBackend   string
	SQLitePath     string
	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3Prefix       string
	S3UsePathStyle bool
	LogLevel       string
	LogFile        string
	ExportWorkers  int
	SavesPerGame   int
	OTLPEndpoint   string
}

// LoadDefaults populates Config with development defaults pointing at a local
// MinIO.
func (c *Config) LoadDefaults() {
	c.RegistryPath = "local-game-list.txt"
	c.SpecPath = "save-specs.yaml"
	c.TempDir = ""
	c.StoreBackend = BackendS3
	c.SQLitePath = "savesync.db"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "saves"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3Prefix = "savegamesync/"
	c.S3UsePathStyle = true
	c.LogLevel = "info"
	c.LogFile = ""
	c.ExportWorkers = 4
	c.SavesPerGame = 0
	c.OTLPEndpoint = ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
