package config

import "github.com/spf13/pflag"

// RegisterFlags defines the flags loadFromFlags reads
func RegisterFlags(flags *pflag.FlagSet) {
	def := Default()

	// Storage flags
	flags.String("provider", def.Storage.Provider, "Storage provider (minio/s3/azure)")
	flags.String("endpoint", "", "Storage endpoint (host:port or URL)")
	flags.String("region", def.Storage.Region, "Storage region")
	flags.Bool("secure", def.Storage.Secure, "Use HTTPS for the storage endpoint")

	// Credential flags
	flags.String("apikey", "", "API key (access key or account name)")
	flags.String("apisecret", "", "API secret (secret key or account key)")
	flags.String("bucket", "", "Bucket name")

	// Upload flags
	flags.String("prefix", "", "Prefix prepended to every filekey")
	flags.Bool("dry-run", false, "List filekeys without uploading")
	flags.Bool("show-progress", def.Upload.ShowProgress, "Show a progress bar on terminals")

	flags.String("journal", def.Journal, "Upload journal database (empty disables it)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	flags.String("log-level", def.LogLevel, "Log level (debug/info/warn/error)")
	flags.String("profile", def.Profile, "INI profile holding saved credentials")
}
