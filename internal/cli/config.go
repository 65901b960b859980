package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable with --store.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// EnvPrefix prefixes every environment fallback (STEPGRAPH_STORE, ...).
const EnvPrefix = "STEPGRAPH_"

// Config carries the settings shared by every command.
type Config struct {
	LogLevel      string
	Store         string
	DataDir       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RunTTL        time.Duration
	SQLitePath    string
	EncryptionKey string
	MaskKeys      []string
	ToolsFile     string
}

// DefaultConfig returns the settings used when neither a flag nor an
// environment variable says otherwise.
func DefaultConfig() Config {
	return Config{
		LogLevel:   "info",
		Store:      StoreMemory,
		DataDir:    ".stepgraph",
		RedisAddr:  "localhost:6379",
		SQLitePath: "stepgraph.db",
	}
}

// Env reads STEPGRAPH_<name>.
func Env(name string) (string, bool) {
	return os.LookupEnv(EnvPrefix + strings.ToUpper(name))
}

// ApplyEnv fills every field whose flag was not set explicitly from the
// environment. changed reports whether the flag of that name was set.
func (c *Config) ApplyEnv(changed func(flag string) bool) error {
	str := func(flag string, dst *string) {
		if changed(flag) {
			return
		}
		if v, ok := Env(envName(flag)); ok {
			*dst = v
		}
	}

	str("log-level", &c.LogLevel)
	str("store", &c.Store)
	str("data-dir", &c.DataDir)
	str("redis-addr", &c.RedisAddr)
	str("redis-password", &c.RedisPassword)
	str("sqlite-path", &c.SQLitePath)
	str("encryption-key", &c.EncryptionKey)
	str("tools-file", &c.ToolsFile)

	if !changed("redis-db") {
		if v, ok := Env(envName("redis-db")); ok {
			db, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%sREDIS_DB: %w", EnvPrefix, err)
			}
			c.RedisDB = db
		}
	}
	if !changed("run-ttl") {
		if v, ok := Env(envName("run-ttl")); ok {
			ttl, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%sRUN_TTL: %w", EnvPrefix, err)
			}
			c.RunTTL = ttl
		}
	}
	if !changed("mask-keys") {
		if v, ok := Env(envName("mask-keys")); ok {
			c.MaskKeys = SplitList(v)
		}
	}
	return nil
}

// SplitList splits a comma-separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envName(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}
