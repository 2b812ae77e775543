package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore はプロセス内メモリにウィンドウを保持するStore実装。
// 単一プロセスの開発環境とテストでのみ使用する。
// 複数インスタンス間では上限が共有されない。
type MemoryStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hits: make(map[string][]time.Time),
	}
}

// Hit は期限切れエントリを除去し、上限未満であれば今回のリクエストを記録する。
func (s *MemoryStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Window, error) {
	if err := ctx.Err(); err != nil {
		return Window{}, err
	}

	cutoff := now.Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	hits := s.hits[key]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	admitted := len(kept) < limit
	if admitted {
		kept = append(kept, now)
	}

	if len(kept) == 0 {
		delete(s.hits, key)
		return Window{Admitted: admitted}, nil
	}
	s.hits[key] = kept

	return Window{
		Admitted: admitted,
		Count:    len(kept),
		Oldest:   kept[0],
	}, nil
}

// Len は保持しているキー数を返す。テスト用。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}

var _ Store = (*MemoryStore)(nil)
