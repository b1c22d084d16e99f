package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/collectivefs/collectivefs/pkg/cache"
	cacheBadger "github.com/collectivefs/collectivefs/pkg/cache/badgercache"
	cacheMemory "github.com/collectivefs/collectivefs/pkg/cache/memory"
	"github.com/collectivefs/collectivefs/pkg/collective"
	"github.com/collectivefs/collectivefs/pkg/storage"
	storageFs "github.com/collectivefs/collectivefs/pkg/storage/fs"
	storageMemory "github.com/collectivefs/collectivefs/pkg/storage/memory"
	storageS3 "github.com/collectivefs/collectivefs/pkg/storage/s3"
)

// CreateStorage creates the root storage backend selected by cfg.Type,
// decoding the matching type-specific section.
//
// Supported types:
//   - "filesystem": local filesystem under a base directory
//   - "memory": in-memory, for development
//   - "s3": S3 or S3-compatible object storage
func CreateStorage(ctx context.Context, cfg *StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemStorage(ctx, cfg.Filesystem)
	case "memory":
		return storageMemory.NewMemoryStorage(), nil
	case "s3":
		return createS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Type)
	}
}

// createFilesystemStorage creates a filesystem-backed root storage.
func createFilesystemStorage(ctx context.Context, options map[string]any) (storage.Storage, error) {
	type FilesystemStorageConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FilesystemStorageConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem storage config: %w", err)
	}
	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem storage: path is required")
	}

	st, err := storageFs.NewFSStorage(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem storage: %w", err)
	}
	return st, nil
}

// createS3Storage creates an S3-backed root storage.
func createS3Storage(ctx context.Context, options map[string]any) (storage.Storage, error) {
	type S3StorageConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
	}

	var storeCfg S3StorageConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 storage config: %w", err)
	}
	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 storage: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 storage: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Static credentials when provided; otherwise the default AWS
	// credential chain (env, shared config, instance metadata).
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storeCfg.AccessKeyID, storeCfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if storeCfg.Endpoint != "" {
			// Custom endpoint for MinIO, Localstack and other
			// S3-compatible services; they need path-style addressing.
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	st, err := storageS3.NewS3Storage(storageS3.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 storage: %w", err)
	}
	return st, nil
}

// CreateCache creates the metadata cache backend selected by cfg.Type.
//
// The returned closer releases backend resources (a no-op for the memory
// backend) and must be called on shutdown.
func CreateCache(ctx context.Context, cfg *CacheConfig) (cache.Cache, func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	switch cfg.Type {
	case "memory":
		return cacheMemory.NewMemoryCache(), func() error { return nil }, nil
	case "badger":
		return createBadgerCache(cfg.Badger)
	default:
		return nil, nil, fmt.Errorf("unknown cache type: %q", cfg.Type)
	}
}

// createBadgerCache creates a BadgerDB-backed metadata cache.
func createBadgerCache(options map[string]any) (cache.Cache, func() error, error) {
	type BadgerCacheConfig struct {
		Path string `mapstructure:"path"`
	}

	var cacheCfg BadgerCacheConfig
	if err := mapstructure.Decode(options, &cacheCfg); err != nil {
		return nil, nil, fmt.Errorf("failed to decode badger cache config: %w", err)
	}
	if cacheCfg.Path == "" {
		return nil, nil, fmt.Errorf("badger cache: path is required")
	}

	c, err := cacheBadger.NewBadgerCache(cacheCfg.Path)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// MembershipTable converts the static membership table into the
// collective package's representation.
func (c *CollectivesConfig) MembershipTable() map[string][]collective.Membership {
	table := make(map[string][]collective.Membership, len(c.Memberships))
	for principal, entries := range c.Memberships {
		memberships := make([]collective.Membership, 0, len(entries))
		for _, e := range entries {
			memberships = append(memberships, collective.Membership{
				ID:          e.ID,
				DisplayName: e.DisplayName,
			})
		}
		table[principal] = memberships
	}
	return table
}
