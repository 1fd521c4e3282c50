package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
	"gorm.io/gorm"
)

type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Name() string { return "db" }

func (c *DBChecker) Check(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

type ObjectStoreChecker struct {
	client *minio.Client
	bucket string
}

func NewObjectStoreChecker(client *minio.Client, bucket string) Checker {
	if client == nil {
		return nil
	}
	return &ObjectStoreChecker{client: client, bucket: bucket}
}

func (c *ObjectStoreChecker) Name() string { return "object_store" }

func (c *ObjectStoreChecker) Check(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q missing", c.bucket)
	}
	return nil
}

type KafkaChecker struct {
	client *kgo.Client
}

func NewKafkaChecker(client *kgo.Client) Checker {
	if client == nil {
		return nil
	}
	return &KafkaChecker{client: client}
}

func (c *KafkaChecker) Name() string { return "kafka" }

func (c *KafkaChecker) Check(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		return errors.Join(errors.New("kafka brokers unreachable"), err)
	}
	return nil
}
