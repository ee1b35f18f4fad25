package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Source   SourceConfig   `mapstructure:"source" validate:"required"`
	Import   ImportConfig   `mapstructure:"import" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// SourceConfig describes the upstream compendium API the importer pulls from.
type SourceConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`

	// FetchTimeoutSeconds bounds each outbound request to the source API.
	// Zero disables the per-request timeout.
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds" validate:"gte=0"`

	// FetchConcurrency caps in-flight detail fetches per page.
	FetchConcurrency int `mapstructure:"fetch_concurrency" validate:"required,gt=0,lte=64"`
}

// ImportConfig tunes the bulk-import task engine.
type ImportConfig struct {
	// MaxLimit is the largest number of records one import request may ask for.
	MaxLimit int `mapstructure:"max_limit" validate:"required,gt=0"`

	// DefaultBatchSize is used when a request does not specify batch_size.
	DefaultBatchSize int `mapstructure:"default_batch_size" validate:"required,gt=0"`

	// InterBatchPauseMillis is the throttle pause between batches.
	InterBatchPauseMillis int `mapstructure:"inter_batch_pause_millis" validate:"gte=0"`
}
