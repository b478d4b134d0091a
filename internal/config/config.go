package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort    int
	DatabasePath  string
	BackupRoot    string // Base path for backup archives
	MinFreeSpace  int64  // Minimum free bytes on the backup volume before alerts
	MonitorPeriod int    // Disk monitor sampling period in seconds
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	minFree, err := strconv.ParseInt(getEnv("MIN_FREE_SPACE_BYTES", "1073741824"), 10, 64)
	if err != nil {
		return nil, err
	}

	monitorPeriod, err := strconv.Atoi(getEnv("DISK_MONITOR_PERIOD_SECONDS", "60"))
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:    port,
		DatabasePath:  getEnv("DATABASE_PATH", "./backup.db"),
		BackupRoot:    getEnv("BACKUP_ROOT", "./backups"),
		MinFreeSpace:  minFree,
		MonitorPeriod: monitorPeriod,
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
