package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port           string
	StoreDriver    string
	DatabaseURL    string
	AutoMigrate    bool
	SQLitePath     string
	Location       *time.Location
	RetentionDays  int
	SweepOnRequest bool
	SweepInterval  time.Duration
	Serialize      bool

	RateLimitPerMinute        int
	RateLimitBurst            int
	CounterRateLimitPerMinute int
	CounterRateLimitBurst     int

	PrinterDevice     string
	PrinterAutodetect bool
	PrinterHeader     string
	PrinterSubheader  string
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	if driver == "" {
		driver = DriverSQLite
	}
	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "antrian.db"
	}

	return Config{
		Port:           port,
		StoreDriver:    driver,
		DatabaseURL:    os.Getenv("DB_DSN"),
		AutoMigrate:    readBool("DB_AUTO_MIGRATE", true),
		SQLitePath:     sqlitePath,
		Location:       readLocation("TZ_OFFSET_HOURS", 7),
		RetentionDays:  readInt("RETENTION_DAYS", 7),
		SweepOnRequest: readBool("SWEEP_ON_REQUEST", true),
		SweepInterval:  readDurationSeconds("SWEEP_INTERVAL_SECONDS", 0),
		Serialize:      readBool("ALLOCATOR_SERIALIZE", true),

		RateLimitPerMinute:        readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:            readInt("RATE_LIMIT_BURST", 30),
		CounterRateLimitPerMinute: readInt("COUNTER_RATE_LIMIT_PER_MIN", 600),
		CounterRateLimitBurst:     readInt("COUNTER_RATE_LIMIT_BURST", 120),

		PrinterDevice:     strings.TrimSpace(os.Getenv("PRINTER_DEVICE")),
		PrinterAutodetect: readBool("PRINTER_AUTODETECT", true),
		PrinterHeader:     readString("PRINTER_HEADER", "PUSKESMAS MREBET"),
		PrinterSubheader:  readString("PRINTER_SUBHEADER", "KAB. PURBALINGGA"),
	}
}

// readLocation builds a fixed-offset zone. The clinic clock does not observe
// daylight saving, so a fixed offset is exact.
func readLocation(key string, fallback int) *time.Location {
	hours := readInt(key, fallback)
	if hours < -12 || hours > 14 {
		hours = fallback
	}
	name := "WIB"
	if hours != 7 {
		name = fmt.Sprintf("UTC%+d", hours)
	}
	return time.FixedZone(name, hours*60*60)
}

func readString(key, fallback string) string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	return raw
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
