// Package numerator provides document auto-numbering.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict fetches every number from the sequence store.
	// Guarantees sequential numbers without gaps. Suitable for invoices
	// and accounting documents.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory.
	// Much faster, but may produce gaps if the application restarts.
	// Suitable for internal documents (orders, picking lists).
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of IDs to allocate at once in Cached
	// strategy. Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Config defines the number format for one document type.
type Config struct {
	// Prefix identifies the document type ("PUR", "SAL", "CN")
	Prefix string
	// Padding is the sequential part width
	Padding int
	// IncludeYear embeds the year, resetting the sequence annually
	IncludeYear bool
}

// DefaultConfig returns the standard format: PREFIX-YYYY-00001.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		Padding:     5,
		IncludeYear: true,
	}
}

// Querier is the sequence store dependency.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service provides document numbering.
type Service struct {
	querier Querier

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

// New creates a numerator service over the given sequence store.
func New(querier Querier) *Service {
	return &Service{
		querier: querier,
		ranges:  make(map[string]*cachedRange),
	}
}

// GetNextNumber generates the next document number for the config.
func (s *Service) GetNextNumber(ctx context.Context, cfg Config, opts *Options, at time.Time) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	key := s.sequenceKey(cfg, at)

	var next int64
	var err error
	switch opts.Strategy {
	case StrategyCached:
		next, err = s.nextCached(ctx, key, opts.RangeSize)
	default:
		next, err = s.nextStrict(ctx, key)
	}
	if err != nil {
		return "", fmt.Errorf("next number for %s: %w", key, err)
	}

	return s.format(cfg, at, next), nil
}

func (s *Service) sequenceKey(cfg Config, at time.Time) string {
	if cfg.IncludeYear {
		return fmt.Sprintf("%s_%d", cfg.Prefix, at.Year())
	}
	return cfg.Prefix
}

func (s *Service) format(cfg Config, at time.Time, n int64) string {
	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%d-%0*d", cfg.Prefix, at.Year(), cfg.Padding, n)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, cfg.Padding, n)
}

// nextStrict advances the sequence by one, atomically in the store.
func (s *Service) nextStrict(ctx context.Context, key string) (int64, error) {
	const query = `
		INSERT INTO sys_sequences (key, current_val) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
		RETURNING current_val
	`
	var val int64
	if err := s.querier.QueryRow(ctx, query, key, int64(1)).Scan(&val); err != nil {
		return 0, err
	}
	return val, nil
}

// nextCached serves from an in-memory range, refilling from the store
// when exhausted.
func (s *Service) nextCached(ctx context.Context, key string, rangeSize int64) (int64, error) {
	if rangeSize <= 0 {
		rangeSize = 50
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	r, ok := s.ranges[key]
	if !ok || r.current >= r.max {
		const query = `
			INSERT INTO sys_sequences (key, current_val) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
			RETURNING current_val
		`
		var newMax int64
		if err := s.querier.QueryRow(ctx, query, key, rangeSize).Scan(&newMax); err != nil {
			return 0, err
		}
		r = &cachedRange{current: newMax - rangeSize, max: newMax}
		s.ranges[key] = r
	}

	r.current++
	return r.current, nil
}
