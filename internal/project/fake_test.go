package project

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pixora/pixora/backend-go/internal/db/dbgen"
	"github.com/pixora/pixora/backend-go/internal/plan"
)

// memStore is an in-memory Store. Each write advances a fake clock so that
// updated_at ordering is deterministic.
type memStore struct {
	mu       sync.Mutex
	users    map[string]dbgen.User
	projects map[string]dbgen.Project
	exports  []dbgen.Export
	rowLocks map[string]*sync.Mutex
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]dbgen.User),
		projects: make(map[string]dbgen.Project),
		rowLocks: make(map[string]*sync.Mutex),
		clock:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

// memTx is a transaction on memStore. Rows locked with FOR UPDATE stay
// locked until the transaction ends.
type memTx struct {
	*memStore
	held []*sync.Mutex
}

func (t *memTx) GetUserByIDForUpdate(ctx context.Context, id string) (dbgen.User, error) {
	t.mu.Lock()
	l, ok := t.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		t.rowLocks[id] = l
	}
	t.mu.Unlock()
	l.Lock()
	t.held = append(t.held, l)
	return t.GetUserByID(ctx, id)
}

func (m *memStore) tick() pgtype.Timestamptz {
	m.clock = m.clock.Add(time.Second)
	return pgtype.Timestamptz{Time: m.clock, Valid: true}
}

func (m *memStore) addUser(id string, tier plan.Tier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = dbgen.User{ID: id, Email: id + "@example.com", DisplayName: id, Plan: string(tier)}
}

func (m *memStore) tx(ctx context.Context, fn func(Store) error) error {
	t := &memTx{memStore: m}
	defer func() {
		for _, l := range t.held {
			l.Unlock()
		}
	}()
	return fn(t)
}

func (m *memStore) GetUserByIDForUpdate(ctx context.Context, id string) (dbgen.User, error) {
	return m.GetUserByID(ctx, id)
}

func (m *memStore) GetUserByID(ctx context.Context, id string) (dbgen.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return dbgen.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memStore) IncrementProjectsUsed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.ProjectsUsed++
	m.users[id] = u
	return nil
}

func (m *memStore) DecrementProjectsUsed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	if u.ProjectsUsed > 0 {
		u.ProjectsUsed--
	}
	m.users[id] = u
	return nil
}

func (m *memStore) CountProjectsForUser(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.projects {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateProject(ctx context.Context, arg dbgen.CreateProjectParams) (dbgen.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	p := dbgen.Project{
		ID:               arg.ID,
		UserID:           arg.UserID,
		Title:            arg.Title,
		Width:            arg.Width,
		Height:           arg.Height,
		OriginalImageUrl: arg.OriginalImageUrl,
		CurrentImageUrl:  arg.CurrentImageUrl,
		ThumbnailUrl:     arg.ThumbnailUrl,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.projects[p.ID] = p
	return p, nil
}

func (m *memStore) GetProject(ctx context.Context, id string) (dbgen.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return dbgen.Project{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memStore) ListProjectsForUser(ctx context.Context, userID string) ([]dbgen.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dbgen.Project
	for _, p := range m.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Time.After(out[j].UpdatedAt.Time) })
	return out, nil
}

func (m *memStore) UpdateProject(ctx context.Context, arg dbgen.UpdateProjectParams) (dbgen.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[arg.ID]
	if !ok {
		return dbgen.Project{}, pgx.ErrNoRows
	}
	if arg.Title.Valid {
		p.Title = arg.Title.String
	}
	if arg.Width.Valid {
		p.Width = arg.Width.Int32
	}
	if arg.Height.Valid {
		p.Height = arg.Height.Int32
	}
	if arg.CanvasState != nil {
		p.CanvasState = arg.CanvasState
	}
	if arg.CurrentImageUrl.Valid {
		p.CurrentImageUrl = arg.CurrentImageUrl
	}
	if arg.ThumbnailUrl.Valid {
		p.ThumbnailUrl = arg.ThumbnailUrl
	}
	p.UpdatedAt = m.tick()
	m.projects[p.ID] = p
	return p, nil
}

func (m *memStore) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, id)
	return nil
}

func (m *memStore) CountExportsSince(ctx context.Context, arg dbgen.CountExportsSinceParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.exports {
		if e.UserID == arg.UserID && !e.CreatedAt.Time.Before(arg.CreatedAt.Time) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateExport(ctx context.Context, arg dbgen.CreateExportParams) (dbgen.Export, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := dbgen.Export{
		ID:        arg.ID,
		ProjectID: arg.ProjectID,
		UserID:    arg.UserID,
		Format:    arg.Format,
		Width:     arg.Width,
		Height:    arg.Height,
		CreatedAt: m.tick(),
	}
	m.exports = append(m.exports, e)
	return e, nil
}

func (m *memStore) DeleteExport(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.exports {
		if e.ID == id {
			m.exports = append(m.exports[:i], m.exports[i+1:]...)
			break
		}
	}
	return nil
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	svc := NewService(store, store.tx, plan.DefaultLimits)
	svc.now = func() time.Time { return store.clock }
	return svc, store
}
