package archive

import (
	"context"
	"sync"

	"github.com/park285/cheese-solo-chess/internal/domain"
)

// MemoryStore keeps the last few games in process. It is used when no Redis
// is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	limit int
	games []*domain.SoloGame // newest last
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 20
	}
	return &MemoryStore{limit: limit}
}

func (m *MemoryStore) Record(_ context.Context, game *domain.SoloGame) error {
	if game == nil {
		return nil
	}
	cp := *game
	cp.Moves = append([]string(nil), game.Moves...)

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, g := range m.games {
		if g.GameID == cp.GameID {
			m.games[i] = &cp
			return nil
		}
	}
	m.games = append(m.games, &cp)
	if over := len(m.games) - m.limit; over > 0 {
		m.games = append([]*domain.SoloGame(nil), m.games[over:]...)
	}
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, n int) ([]*domain.SoloGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 || n > len(m.games) {
		n = len(m.games)
	}
	out := make([]*domain.SoloGame, 0, n)
	for i := len(m.games) - 1; i >= 0 && len(out) < n; i-- {
		cp := *m.games[i]
		out = append(out, &cp)
	}
	return out, nil
}
