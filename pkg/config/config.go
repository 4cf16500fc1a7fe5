// Package config loads untwist configuration.
//
// Values are layered, later sources winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML file, untwist.toml in the working directory unless a path is given
//  3. UNTWIST_ environment variables (UNTWIST_SERVER_ADDR sets server.addr)
//  4. command-line flags bound with [Bind]
//
// The merged result is validated before it is returned.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/volvulus/untwist/pkg/cache"
	"github.com/volvulus/untwist/pkg/dump"
	"github.com/volvulus/untwist/pkg/project"
	"github.com/volvulus/untwist/pkg/storage"
)

const appName = "untwist"

// DefaultFile is the config file read when no path is given.
const DefaultFile = appName + ".toml"

// Cache backends.
const (
	CacheNull   = "null"
	CacheFile   = "file"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageMongo  = "mongo"
)

// Config is the full untwist configuration.
type Config struct {
	LogLevel string   `koanf:"log_level" toml:"log_level" validate:"oneof=debug info warn error"`
	Pipeline Pipeline `koanf:"pipeline" toml:"pipeline"`
	Cache    Cache    `koanf:"cache" toml:"cache"`
	Server   Server   `koanf:"server" toml:"server"`
	Storage  Storage  `koanf:"storage" toml:"storage"`
	Watch    Watch    `koanf:"watch" toml:"watch"`
}

// Pipeline holds load options.
type Pipeline struct {
	DropAttributes     []string `koanf:"drop_attributes" toml:"drop_attributes"`
	MaxAttributeLength int      `koanf:"max_attribute_length" toml:"max_attribute_length" validate:"gte=-1"`
	Parallelism        int      `koanf:"parallelism" toml:"parallelism" validate:"gte=0"`
	ParallelThreshold  int      `koanf:"parallel_threshold" toml:"parallel_threshold" validate:"gte=0"`
	MaxBytes           int64    `koanf:"max_bytes" toml:"max_bytes" validate:"gt=0"`
}

// Cache selects and configures the result cache.
type Cache struct {
	Backend       string        `koanf:"backend" toml:"backend" validate:"oneof=null file memory redis"`
	Dir           string        `koanf:"dir" toml:"dir" validate:"required_if=Backend file"`
	MemoryEntries int           `koanf:"memory_entries" toml:"memory_entries" validate:"gte=0"`
	RedisAddr     string        `koanf:"redis_addr" toml:"redis_addr" validate:"required_if=Backend redis,omitempty,hostname_port"`
	RedisPassword string        `koanf:"redis_password" toml:"redis_password"`
	RedisDB       int           `koanf:"redis_db" toml:"redis_db" validate:"gte=0"`
	RedisPrefix   string        `koanf:"redis_prefix" toml:"redis_prefix"`
	DialTimeout   time.Duration `koanf:"dial_timeout" toml:"dial_timeout" validate:"gte=0"`
}

// Server configures the HTTP viewer backend.
type Server struct {
	Addr            string        `koanf:"addr" toml:"addr" validate:"required,hostname_port"`
	RequestTimeout  time.Duration `koanf:"request_timeout" toml:"request_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" toml:"shutdown_timeout" validate:"gte=0"`
}

// Storage selects the snapshot archive.
type Storage struct {
	Backend         string `koanf:"backend" toml:"backend" validate:"oneof=memory file mongo"`
	Dir             string `koanf:"dir" toml:"dir" validate:"required_if=Backend file"`
	MaxSnapshots    int    `koanf:"max_snapshots" toml:"max_snapshots" validate:"gte=0"`
	MongoURI        string `koanf:"mongo_uri" toml:"mongo_uri" validate:"required_if=Backend mongo,omitempty,uri"`
	MongoDatabase   string `koanf:"mongo_database" toml:"mongo_database"`
	MongoCollection string `koanf:"mongo_collection" toml:"mongo_collection"`

	// ConnectTimeout bounds connecting to a remote backend.
	ConnectTimeout time.Duration `koanf:"connect_timeout" toml:"connect_timeout" validate:"gte=0"`
}

// Watch configures dump reloading in serve --watch.
type Watch struct {
	Debounce time.Duration `koanf:"debounce" toml:"debounce" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Pipeline: Pipeline{
			DropAttributes:     append([]string(nil), project.DefaultDropAttributes...),
			MaxAttributeLength: project.DefaultMaxAttributeLength,
			MaxBytes:           dump.DefaultMaxBytes,
		},
		Cache: Cache{
			Backend:       CacheFile,
			Dir:           userDir("XDG_CACHE_HOME", ".cache"),
			MemoryEntries: cache.DefaultMemoryEntries,
			RedisPrefix:   appName + ":",
			DialTimeout:   5 * time.Second,
		},
		Server: Server{
			Addr:            "127.0.0.1:8080",
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: Storage{
			Backend:         StorageMemory,
			Dir:             filepath.Join(userDir("XDG_STATE_HOME", filepath.Join(".local", "state")), "snapshots"),
			MaxSnapshots:    storage.DefaultMemorySnapshots,
			MongoDatabase:   storage.DefaultMongoDatabase,
			MongoCollection: storage.DefaultMongoCollection,
			ConnectTimeout:  10 * time.Second,
		},
		Watch: Watch{
			Debounce: 300 * time.Millisecond,
		},
	}
}

// userDir returns $env/untwist, falling back to ~/fallback/untwist, then
// to a directory under the system temp dir.
func userDir(env, fallback string) string {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, fallback, appName)
	}
	return filepath.Join(os.TempDir(), appName)
}
