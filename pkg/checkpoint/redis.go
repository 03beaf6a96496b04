package checkpoint

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/logtab/logtab/pkg/errors"
)

// RedisConfig configures the Redis checkpoint backend.
type RedisConfig struct {
	Address  string
	Password string
	Database int

	// Prefix is prepended to every key.
	Prefix string

	// TTL expires job keys; zero keeps them forever.
	TTL time.Duration

	Timeout time.Duration
}

// DefaultRedisConfig returns defaults for a local Redis.
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address: address,
		Prefix:  "logtab:jobs:",
		TTL:     24 * time.Hour,
		Timeout: 5 * time.Second,
	}
}

// RedisBackend shares job state between workers through Redis.
type RedisBackend struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedisBackend connects and verifies reachability with a ping.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to connect to Redis").
			WithContext("address", cfg.Address)
	}

	return &RedisBackend{cfg: cfg, client: client}, nil
}

func (b *RedisBackend) key(id string) string {
	return b.cfg.Prefix + id
}

func (b *RedisBackend) inputKey(inputPath string) string {
	return b.cfg.Prefix + "input:" + sanitizeKey(inputPath)
}

func sanitizeKey(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}

// Save stores the job and its input-path index in one pipeline.
func (b *RedisBackend) Save(ctx context.Context, job *Job) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, errors.CodeCheckpoint, "failed to marshal job")
	}

	pipe := b.client.Pipeline()
	pipe.Set(ctx, b.key(job.ID), data, b.cfg.TTL)
	pipe.Set(ctx, b.inputKey(job.InputPath), job.ID, b.cfg.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CodeCheckpoint, "failed to save job to Redis").
			WithContext("id", job.ID)
	}
	return nil
}

// Load retrieves a job by id.
func (b *RedisBackend) Load(ctx context.Context, id string) (*Job, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := b.client.Get(ctx, b.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to load job from Redis").
			WithContext("id", id)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to parse job").
			WithContext("id", id)
	}
	return &job, nil
}

// Delete removes a job and its input index.
func (b *RedisBackend) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	job, err := b.Load(ctx, id)
	if err != nil {
		return err
	}

	pipe := b.client.Pipeline()
	pipe.Del(ctx, b.key(id))
	if job != nil {
		pipe.Del(ctx, b.inputKey(job.InputPath))
	}
	_, err = pipe.Exec(ctx)
	return err
}

// FindByInput looks up the job recorded for an input path via the index.
func (b *RedisBackend) FindByInput(ctx context.Context, inputPath string) (*Job, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	id, err := b.client.Get(ctx, b.inputKey(inputPath)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to look up job by input").
			WithContext("input", inputPath)
	}
	return b.Load(ctx, id)
}

// Name returns "redis".
func (b *RedisBackend) Name() string {
	return "redis"
}

// Close releases the connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// AcquireLock takes a distributed lock on one input file so only one worker
// converts it. Returns nil without error when the lock is already held.
func (b *RedisBackend) AcquireLock(ctx context.Context, inputPath string, ttl time.Duration) (*Lock, error) {
	key := b.cfg.Prefix + "lock:" + sanitizeKey(inputPath)
	value := time.Now().Format(time.RFC3339Nano)

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	ok, err := b.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to acquire lock").
			WithContext("input", inputPath)
	}
	if !ok {
		return nil, nil
	}
	return &Lock{backend: b, key: key, value: value}, nil
}

// Lock is a held distributed lock.
type Lock struct {
	backend *RedisBackend
	key     string
	value   string
}

// Release frees the lock only if this holder still owns it.
func (l *Lock) Release(ctx context.Context) error {
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)
	_, err := script.Run(ctx, l.backend.client, []string{l.key}, l.value).Result()
	return err
}
