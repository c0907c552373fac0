package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pevans/udnfetch/discovery"
	"github.com/pevans/udnfetch/newsfeed"
)

// DefaultStream is the stream records are published to when none is
// configured.
const DefaultStream = "udnfetch:articles"

var _ Publisher = (*RedisPublisher)(nil)

// RedisPublisher implements Publisher using a Redis stream. Each record is
// one stream entry.
type RedisPublisher struct {
	client    *redis.Client
	stream    string
	maxLength int64
	log       zerolog.Logger
}

// NewRedisPublisher creates a new Redis publisher. A positive maxLength
// approximately trims the stream on every add.
func NewRedisPublisher(addr string, db int, stream string, maxLength int64, log zerolog.Logger) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:    client,
		stream:    stream,
		maxLength: maxLength,
		log:       log.With().Str("component", "publisher").Str("stream", stream).Logger(),
	}
}

// Ping checks that the server is reachable.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}
	return nil
}

// PublishRun adds one entry per record. It stops at the first failure.
func (p *RedisPublisher) PublishRun(ctx context.Context, result *discovery.RunResult) (int, error) {
	if result == nil {
		return 0, nil
	}

	for i, rec := range result.Records {
		values, err := entryValues(result, i, rec)
		if err != nil {
			return i, err
		}

		args := &redis.XAddArgs{
			Stream: p.stream,
			Values: values,
		}
		if p.maxLength > 0 {
			args.MaxLen = p.maxLength
			args.Approx = true
		}

		if err := p.client.XAdd(ctx, args).Err(); err != nil {
			p.log.Error().Err(err).Int("position", i).Msg("Failed to publish record")
			return i, fmt.Errorf("publish to stream: %w", err)
		}
	}

	p.log.Info().
		Str("run_id", result.ID.String()).
		Int("records", len(result.Records)).
		Msg("Published run")
	return len(result.Records), nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// entryValues builds the fields of one stream entry.
func entryValues(result *discovery.RunResult, position int, rec newsfeed.ArticleRecord) (map[string]any, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return map[string]any{
		"run_id":   result.ID.String(),
		"keyword":  result.Criteria.Keyword,
		"position": strconv.Itoa(position),
		"news_id":  rec.NewsID,
		"record":   string(payload),
	}, nil
}
