package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotFound = errors.New("key not found")

type Config struct {
	Address  string
	Password string
	DB       int
}

type IRedis interface {
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Close() error
}

type redisClient struct {
	client *redis.Client
	log    *logrus.Logger
}

func New(cfg Config, log *logrus.Logger) IRedis {
	if log == nil {
		log = logrus.StandardLogger()
	}

	log.Info(fmt.Sprintf("Connecting to Redis at %s...", cfg.Address))

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		log.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client, log: log}
}

func (r *redisClient) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, expiration).Err(); err != nil {
		r.log.Error(fmt.Sprintf("Error setting key %s: %v", key, err))
		return err
	}

	r.log.Debug(fmt.Sprintf("Successfully set key %s", key))
	return nil
}

func (r *redisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	} else if err != nil {
		r.log.Error(fmt.Sprintf("Error getting key %s: %v", key, err))
		return err
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
