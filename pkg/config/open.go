package config

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/volvulus/untwist/pkg/cache"
	"github.com/volvulus/untwist/pkg/pipeline"
	"github.com/volvulus/untwist/pkg/storage"
)

// PipelineOptions returns run options for the pipeline section.
func (c *Config) PipelineOptions(logger *log.Logger) pipeline.Options {
	return pipeline.Options{
		DropAttributes:     c.Pipeline.DropAttributes,
		MaxAttributeLength: c.Pipeline.MaxAttributeLength,
		Parallelism:        c.Pipeline.Parallelism,
		ParallelThreshold:  c.Pipeline.ParallelThreshold,
		MaxBytes:           c.Pipeline.MaxBytes,
		Logger:             logger,
	}
}

// OpenCache returns the configured result cache.
func (c *Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache.Backend {
	case CacheNull:
		return cache.NewNullCache(), nil
	case CacheFile:
		fc, err := cache.NewFileCache(c.Cache.Dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	case CacheMemory:
		mc, err := cache.NewMemoryCache(c.Cache.MemoryEntries)
		if err != nil {
			return nil, err
		}
		return mc, nil
	case CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:        c.Cache.RedisAddr,
			Password:    c.Cache.RedisPassword,
			DB:          c.Cache.RedisDB,
			Prefix:      c.Cache.RedisPrefix,
			DialTimeout: c.Cache.DialTimeout,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
}

// OpenStore returns the configured snapshot store.
func (c *Config) OpenStore(ctx context.Context) (storage.Store, error) {
	switch c.Storage.Backend {
	case StorageMemory:
		return storage.NewMemoryStore(c.Storage.MaxSnapshots), nil
	case StorageFile:
		fs, err := storage.NewFileStore(c.Storage.Dir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case StorageMongo:
		ms, err := storage.NewMongoStore(ctx, storage.MongoConfig{
			URI:            c.Storage.MongoURI,
			Database:       c.Storage.MongoDatabase,
			Collection:     c.Storage.MongoCollection,
			ConnectTimeout: c.Storage.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		return ms, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
}
