package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/framesync/pkg/domain"
	"github.com/aretw0/framesync/pkg/ports"
)

// MockStore is a minimal StateStore used to validate the contract suite itself.
type MockStore struct {
	mu   sync.Mutex
	data map[string]domain.SessionState
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]domain.SessionState)}
}

func (m *MockStore) Save(ctx context.Context, sessionID string, state *domain.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	copied.Entries = append([]string(nil), state.Entries...)
	m.data[sessionID] = copied
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	state.Entries = append([]string(nil), state.Entries...)
	return &state, nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestStateStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, NewMockStore())
}
