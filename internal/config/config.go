package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Init wires environment variables, an optional .env file and the persistent
// flags of root into viper. Flag names use dashes; the matching keys use
// underscores, so --max-file-size feeds max_file_size (BIO_MCP_MAX_FILE_SIZE).
func Init(root *cobra.Command) {
	_ = godotenv.Load(envFile())
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if root != nil {
		root.PersistentFlags().VisitAll(func(f *pflag.Flag) {
			_ = viper.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
	}
	setDefaults()
}

func envFile() string {
	if path := os.Getenv(EnvPrefix + "_ENV_FILE"); path != "" {
		return path
	}
	return ".env"
}

func setDefaults() {
	viper.SetDefault(KeyMaxFileSize, 100_000_000)
	viper.SetDefault(KeyTimeout, "300")
	viper.SetDefault(KeyAmberPath, "amber")
	viper.SetDefault(KeyPmemdPath, "pmemd")
	viper.SetDefault(KeyTleapPath, "tleap")
	viper.SetDefault(KeyCpptrajPath, "cpptraj")
	viper.SetDefault(KeyTempDir, "")
	viper.SetDefault(KeyStructurePreviewBytes, 2000)
	viper.SetDefault(KeyMaxConcurrentRuns, 0)
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyRunHistoryMax, 500)
	viper.SetDefault(KeyAutoMigrate, false)
	viper.SetDefault(KeyTransport, "stdio")
	viper.SetDefault(KeyHost, "0.0.0.0")
	viper.SetDefault(KeyPort, 8000)
}

func MaxFileSize() int64         { return viper.GetInt64(KeyMaxFileSize) }
func AmberPath() string          { return viper.GetString(KeyAmberPath) }
func PmemdPath() string          { return viper.GetString(KeyPmemdPath) }
func TleapPath() string          { return viper.GetString(KeyTleapPath) }
func CpptrajPath() string        { return viper.GetString(KeyCpptrajPath) }
func TempDir() string            { return viper.GetString(KeyTempDir) }
func StructurePreviewBytes() int { return viper.GetInt(KeyStructurePreviewBytes) }
func MaxConcurrentRuns() int     { return viper.GetInt(KeyMaxConcurrentRuns) }
func ForceFieldCatalog() string  { return viper.GetString(KeyForceFieldCatalog) }
func LogLevel() string           { return viper.GetString(KeyLogLevel) }
func PostgresURL() string        { return viper.GetString(KeyPostgresURL) }
func DBDebug() bool              { return viper.GetBool(KeyDBDebug) }
func RunHistoryMax() int         { return viper.GetInt(KeyRunHistoryMax) }
func AutoMigrate() bool          { return viper.GetBool(KeyAutoMigrate) }
func MigrationsDir() string      { return viper.GetString(KeyMigrationsDir) }
func Transport() string          { return strings.ToLower(viper.GetString(KeyTransport)) }
func Host() string               { return viper.GetString(KeyHost) }
func Port() int                  { return viper.GetInt(KeyPort) }

// Timeout returns the per-request budget for the external tools.
func Timeout() (time.Duration, error) {
	return ParseSeconds(viper.GetString(KeyTimeout), 300*time.Second)
}

// ParseSeconds accepts a bare number of seconds ("300") or a Go duration
// ("5m"). Empty input yields fallback.
func ParseSeconds(value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	if secs, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("timeout must be positive, got %q", value)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %q", value)
	}
	return d, nil
}
