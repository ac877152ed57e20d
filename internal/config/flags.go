package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/savegamesync/internal/flagx"
)

// FlagNames lists the short flags parseFlags understands. The CLI strips them
// before handing the rest of the arguments to its command parser.
var FlagNames = []string{"-r", "-s", "-t", "-k", "-q", "-u", "-p", "-b", "-g", "-e", "-x", "-l", "-o", "-w", "-n", "-m"}

// parseFlags populates Config fields from short command-line flags.
//
//	-r string   local registry file
//	-s string   save spec YAML file
//	-t string   temp directory for workspaces
//	-k string   store backend (s3 | sqlite)
//	-q string   sqlite database file
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-x string   S3 key prefix
//	-l string   log level
//	-o string   log file
//	-w int      export workers
//	-n int      saves kept per game (0 = all)
//	-m string   OTLP/HTTP metrics endpoint
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], FlagNames)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.RegistryPath, "r", config.RegistryPath, "local registry file")
	fs.StringVar(&config.SpecPath, "s", config.SpecPath, "save spec file")
	fs.StringVar(&config.TempDir, "t", config.TempDir, "temp directory")
	fs.StringVar(&config.StoreBackend, "k", config.StoreBackend, "store backend (s3 | sqlite)")
	fs.StringVar(&config.SQLitePath, "q", config.SQLitePath, "sqlite database file")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3Prefix, "x", config.S3Prefix, "S3 key prefix")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "o", config.LogFile, "log file")
	fs.IntVar(&config.ExportWorkers, "w", config.ExportWorkers, "export workers")
	fs.IntVar(&config.SavesPerGame, "n", config.SavesPerGame, "saves kept per game (0 = all)")
	fs.StringVar(&config.OTLPEndpoint, "m", config.OTLPEndpoint, "OTLP metrics endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
