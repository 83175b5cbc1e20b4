package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/citypulse/cityhub/internal/jobs"
	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Dequeue when the blocking pop times out with
// nothing to hand back.
var ErrEmpty = errors.New("queue empty")

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// Ping checks redis connectivity

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// Enqueue pushes a job onto the named list. Producer side of the
// producer/worker flow.
func (c *Client) Enqueue(ctx context.Context, key string, j jobs.Job) error {
	b, err := json.Marshal(j)

	if err != nil {
		return err
	}

	return c.redisdb.LPush(ctx, key, b).Err()
}

// Dequeue blocks up to timeout for the next job on the named list.
func (c *Client) Dequeue(ctx context.Context, key string, timeout time.Duration) (jobs.Job, error) {
	res, err := c.redisdb.BRPop(ctx, timeout, key).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return jobs.Job{}, ErrEmpty
		}

		return jobs.Job{}, err
	}

	// BRPOP result is [key, value]
	if len(res) != 2 {
		return jobs.Job{}, ErrEmpty
	}

	var j jobs.Job

	if err := json.Unmarshal([]byte(res[1]), &j); err != nil {
		return jobs.Job{}, err
	}

	return j, nil
}
