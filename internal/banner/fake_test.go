package banner

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"
)

type memRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]Banner
	err    error
	lives  int
	// afterLive, when set, runs once Live has taken its snapshot
	afterLive func()
}

func newMemRepo() *memRepo { return &memRepo{rows: map[int64]Banner{}} }

func (m *memRepo) Insert(_ context.Context, b Banner) (Banner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Banner{}, m.err
	}
	if !b.StartDate.Before(b.EndDate) {
		return Banner{}, ErrWindowOrder
	}
	m.nextID++
	b.ID = m.nextID
	m.rows[b.ID] = b
	return b, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (*Banner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *memRepo) Update(_ context.Context, b Banner) (Banner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Banner{}, m.err
	}
	if _, ok := m.rows[b.ID]; !ok {
		return Banner{}, ErrNotFound
	}
	if !b.StartDate.Before(b.EndDate) {
		return Banner{}, ErrWindowOrder
	}
	m.rows[b.ID] = b
	return b, nil
}

func (m *memRepo) SetImage(_ context.Context, id int64, ref string, at time.Time) (Banner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Banner{}, m.err
	}
	b, ok := m.rows[id]
	if !ok {
		return Banner{}, ErrNotFound
	}
	b.ImageURL = &ref
	b.UpdatedAt = at
	m.rows[id] = b
	return b, nil
}

func (m *memRepo) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *memRepo) all() []Banner {
	out := make([]Banner, 0, len(m.rows))
	for _, b := range m.rows {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memRepo) List(_ context.Context, limit int) ([]Banner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := m.all()
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) Live(_ context.Context, now time.Time) ([]Banner, error) {
	m.mu.Lock()
	m.lives++
	if m.err != nil {
		m.mu.Unlock()
		return nil, m.err
	}
	var out []Banner
	for _, b := range m.all() {
		if b.IsActive && b.EndDate.After(now) {
			out = append(out, b)
		}
	}
	afterRead := m.afterLive
	m.mu.Unlock()

	// runs after the snapshot is taken, as a concurrent writer would
	if afterRead != nil {
		afterRead()
	}
	return out, nil
}

// put stores b as-is, for fixtures that need exact timestamps.
func (m *memRepo) put(b Banner) Banner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	m.rows[b.ID] = b
	return b
}

type memCache struct {
	mu          sync.Mutex
	set         []Banner
	ok          bool
	gen         int64
	invalidated int
	stale       int
	err         error
}

func (c *memCache) Get(context.Context) ([]Banner, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	return c.set, c.ok, nil
}

func (c *memCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	return c.gen, nil
}

func (c *memCache) Set(_ context.Context, gen int64, b []Banner) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.stale++
		return false, nil
	}
	c.set, c.ok = b, true
	return true, nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.set, c.ok = nil, false
	c.invalidated++
	return nil
}

type memBlobs struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
	// during runs before the stream is read
	during func()
}

func newMemBlobs() *memBlobs { return &memBlobs{files: map[string][]byte{}} }

func (b *memBlobs) Put(_ context.Context, r io.Reader, name string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.during != nil {
		b.during()
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ref := "/uploads/banners/" + string(rune('a'+len(b.files))) + "-" + name
	b.files[ref] = data
	return ref, nil
}

var errStorage = errors.New("connection refused")
