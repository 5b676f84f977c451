package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// scoreField is the only document field with a maintained rank index. It is
// the field the leaderboard orders by and the one mutated transactionally.
const scoreField = "totalXP"

// maxTxRetries bounds optimistic-lock retries when a watched key is touched
// by a concurrent writer (another device of the same user, typically).
const maxTxRetries = 5

// RedisRemote implements Remote on a Redis backend. Documents are JSON
// strings keyed "<collection>:<id>"; each collection whose documents carry a
// totalXP field also maintains a sorted-set rank index so ordered queries
// never scan.
type RedisRemote struct {
	rc *redis.Client
}

// NewRedisRemote creates the remote document adapter.
func NewRedisRemote(rc *redis.Client) *RedisRemote {
	return &RedisRemote{rc: rc}
}

func docKey(collection, id string) string {
	return collection + ":" + id
}

func rankKey(collection string) string {
	return "rank:" + collection
}

func (r *RedisRemote) GetDocument(ctx context.Context, collection, id string) (map[string]any, error) {
	b, err := r.rc.Get(ctx, docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("remote get %s/%s: %w", collection, id, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("remote get %s/%s: decode: %w", collection, id, err)
	}
	return doc, nil
}

func (r *RedisRemote) SetDocument(ctx context.Context, collection, id string, doc map[string]any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("remote set %s/%s: encode: %w", collection, id, err)
	}
	_, err = r.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, docKey(collection, id), b, 0)
		if score, ok := docScore(doc); ok {
			pipe.ZAdd(ctx, rankKey(collection), redis.Z{Score: score, Member: id})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remote set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (r *RedisRemote) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	doc, err := r.GetDocument(ctx, collection, id)
	if err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	return r.SetDocument(ctx, collection, id, doc)
}

func (r *RedisRemote) RunTransaction(ctx context.Context, collection, id string, fn func(doc map[string]any) map[string]any) error {
	key := docKey(collection, id)

	txn := func(tx *redis.Tx) error {
		var doc map[string]any
		b, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			doc = nil
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(b, &doc); err != nil {
				return fmt.Errorf("decode: %w", err)
			}
		}

		next := fn(doc)
		if next == nil {
			return nil
		}
		out, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			if score, ok := docScore(next); ok {
				pipe.ZAdd(ctx, rankKey(collection), redis.Z{Score: score, Member: id})
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.rc.Watch(ctx, txn, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("remote transaction %s/%s: %w", collection, id, err)
	}
	return fmt.Errorf("remote transaction %s/%s: too many conflicts", collection, id)
}

func (r *RedisRemote) Query(ctx context.Context, collection, orderBy string, limit int) ([]map[string]any, error) {
	if orderBy != scoreField {
		return nil, fmt.Errorf("remote query %s: no index on field %q", collection, orderBy)
	}
	if limit <= 0 {
		limit = 10
	}
	ids, err := r.rc.ZRevRange(ctx, rankKey(collection), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("remote query %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(collection, id)
	}
	values, err := r.rc.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("remote query %s: %w", collection, err)
	}

	docs := make([]map[string]any, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Index entry without a document; skip rather than fail the page.
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(s), &doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func docScore(doc map[string]any) (float64, bool) {
	switch v := doc[scoreField].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
