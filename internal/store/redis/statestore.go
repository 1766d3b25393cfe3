// Package redis persists live-trading position state in Redis so a
// restarted runner resumes with the positions it held, instead of
// re-entering or orphaning them.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"algotradingv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const positionKeyPrefix = "position:open:"

// Config configures the Redis state store.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// StateStore saves and restores open positions keyed by ticker.
type StateStore struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (s *StateStore) Client() *goredis.Client { return s.client }

// New creates a StateStore and pings the server.
func New(cfg Config) (*StateStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &StateStore{client: client}, nil
}

// positionState is the stored value: the open position plus the entry
// context the tracker needs to finalize the trade later.
type positionState struct {
	Position   model.Position `json:"position"`
	Confidence float64        `json:"confidence"`
	EntryRSI   model.OptValue `json:"entry_rsi"`
}

// SavePosition stores a ticker's open position.
func (s *StateStore) SavePosition(ctx context.Context, pos model.Position, confidence float64, entryRSI model.OptValue) error {
	data, err := json.Marshal(positionState{Position: pos, Confidence: confidence, EntryRSI: entryRSI})
	if err != nil {
		return fmt.Errorf("redis marshal position: %w", err)
	}
	if err := s.client.Set(ctx, positionKeyPrefix+pos.Ticker, data, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", pos.Ticker, err)
	}
	return nil
}

// LoadPosition returns a ticker's stored open position, or ok=false if
// none is stored.
func (s *StateStore) LoadPosition(ctx context.Context, ticker string) (pos model.Position, confidence float64, entryRSI model.OptValue, ok bool, err error) {
	data, err := s.client.Get(ctx, positionKeyPrefix+ticker).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return model.Position{}, 0, model.OptValue{}, false, nil
		}
		return model.Position{}, 0, model.OptValue{}, false, fmt.Errorf("redis GET %s: %w", ticker, err)
	}

	var state positionState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.Position{}, 0, model.OptValue{}, false, fmt.Errorf("redis unmarshal position %s: %w", ticker, err)
	}
	return state.Position, state.Confidence, state.EntryRSI, true, nil
}

// ClearPosition removes a ticker's stored position after it closes.
func (s *StateStore) ClearPosition(ctx context.Context, ticker string) error {
	if err := s.client.Del(ctx, positionKeyPrefix+ticker).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", ticker, err)
	}
	return nil
}

// PublishTradeEvent broadcasts a trade record on the trades pubsub
// channel for dashboard subscribers. Best-effort: errors are logged.
func (s *StateStore) PublishTradeEvent(ctx context.Context, rec model.TradeRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		log.Printf("[redis] marshal trade event: %v", err)
		return
	}
	if err := s.client.Publish(ctx, "pub:trades", data).Err(); err != nil {
		log.Printf("[redis] publish trade event %s: %v", rec.Ticker, err)
	}
}

// Close closes the Redis client.
func (s *StateStore) Close() error {
	return s.client.Close()
}
