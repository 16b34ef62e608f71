package config

const (
	KeyMaxFileSize           = "max_file_size"
	KeyTimeout               = "timeout"
	KeyAmberPath             = "amber_path"
	KeyPmemdPath             = "pmemd_path"
	KeyTleapPath             = "tleap_path"
	KeyCpptrajPath           = "cpptraj_path"
	KeyTempDir               = "temp_dir"
	KeyStructurePreviewBytes = "structure_preview_bytes"
	KeyMaxConcurrentRuns     = "max_concurrent_runs"
	KeyForceFieldCatalog     = "force_field_catalog"
	KeyLogLevel              = "log_level"
	KeyPostgresURL           = "postgres_url"
	KeyDBDebug               = "db_debug"
	KeyRunHistoryMax         = "run_history_max"
	KeyAutoMigrate           = "auto_migrate"
	KeyMigrationsDir         = "db_migrations_dir"
	KeyTransport             = "transport"
	KeyHost                  = "host"
	KeyPort                  = "port"
)

// EnvPrefix is prepended (with an underscore) to every key when read from the environment.
const EnvPrefix = "BIO_MCP"
