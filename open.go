package goIdentity

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goIdentity/faults"
	"github.com/MrEthical07/goIdentity/notify/amqp"
	"github.com/MrEthical07/goIdentity/store/sqlite"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Open builds an Engine from cfg alone: a go-redis client for cfg.Redis, the
// SQLite store at cfg.Database.Path and, when cfg.AMQP.URL is set, an AMQP
// producer. Engine.Close releases all three.
func Open(ctx context.Context, cfg Config, opts ...func(*Builder)) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var closers []io.Closer
	fail := func(err error) (*Engine, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	closers = append(closers, client)
	if err := client.Ping(ctx).Err(); err != nil {
		return fail(faults.Unavailable("redis", err))
	}

	open := sqlite.OpenExisting
	if cfg.Database.MigrateOnOpen {
		open = sqlite.Open
	}
	repo, err := open(cfg.Database.Path)
	if err != nil {
		return fail(fmt.Errorf("open store: %w", err))
	}
	closers = append(closers, repo)

	b := New().WithConfig(cfg).WithRedis(client).WithRepository(repo)
	if cfg.AMQP.URL != "" {
		producer, err := amqp.NewProducer(cfg.AMQP.URL, cfg.AMQP.Username, cfg.AMQP.Password)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, closerFunc(func() error { return producer.Close(context.Background()) }))
		b.WithProducer(producer)
	}
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		return fail(err)
	}
	engine.closers = closers
	return engine, nil
}
