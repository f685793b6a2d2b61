package manager

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/schema"
)

// TableInfo describes a registered table.
type TableInfo struct {
	Name        string           `json:"name"`
	Version     string           `json:"version"`
	Source      string           `json:"source,omitempty"`
	Description string           `json:"description,omitempty"`
	HitPolicy   schema.HitPolicy `json:"hit_policy"`
	Inputs      []engine.Column  `json:"inputs"`
	Outputs     []engine.Column  `json:"outputs"`
	Rules       int              `json:"rules"`
	Diagnostics int              `json:"diagnostics"`
	LoadedAt    time.Time        `json:"loaded_at"`
}

// NewTableInfo fills a TableInfo from a compiled table.
func NewTableInfo(t *engine.Table, version, source string) TableInfo {
	return TableInfo{
		Name:        t.Name(),
		Version:     version,
		Source:      source,
		HitPolicy:   t.HitPolicy(),
		Inputs:      t.Inputs(),
		Outputs:     t.Outputs(),
		Rules:       t.NumRules(),
		Diagnostics: len(t.Diagnostics()),
		LoadedAt:    time.Now(),
	}
}

// slot holds one version of a table. A retired slot is released when its
// last lease ends.
type slot struct {
	table   *engine.Table
	info    TableInfo
	refs    int
	retired bool
}

// Registry is a thread-safe set of named compiled tables.
type Registry struct {
	mu     sync.Mutex
	tables map[string]*slot
	closed bool
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tables: make(map[string]*slot),
		logger: logger.With("component", "registry"),
	}
}

// Put registers t under info.Name, retiring any previous version.
func (r *Registry) Put(t *engine.Table, info TableInfo) error {
	if t == nil {
		return &RegistryError{Table: info.Name, Operation: "put", Err: engine.ErrNilTable}
	}
	if info.Name == "" {
		info.Name = t.Name()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		t.Release()
		return &RegistryError{Table: info.Name, Operation: "put", Err: ErrRegistryClosed}
	}

	if old, ok := r.tables[info.Name]; ok {
		if old.table == t {
			return nil
		}
		r.retireLocked(old)
	}
	r.tables[info.Name] = &slot{table: t, info: info}

	r.logger.Info("Table registered",
		"table", info.Name,
		"version", info.Version,
		"rules", info.Rules,
	)
	return nil
}

// Acquire leases the current version of the named table.
func (r *Registry) Acquire(name string) (*Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, &RegistryError{Table: name, Operation: "acquire", Err: ErrRegistryClosed}
	}
	s, ok := r.tables[name]
	if !ok {
		return nil, &RegistryError{Table: name, Operation: "acquire", Err: ErrTableNotFound}
	}
	s.refs++
	return &Lease{registry: r, slot: s}, nil
}

// Get returns the metadata of the named table.
func (r *Registry) Get(name string) (TableInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.tables[name]
	if !ok {
		return TableInfo{}, false
	}
	return s.info, true
}

// List returns the metadata of all tables sorted by name.
func (r *Registry) List() []TableInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]TableInfo, 0, len(r.tables))
	for _, s := range r.tables {
		infos = append(infos, s.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Names returns the registered table names sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tables)
}

// Remove unregisters the named table.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.tables[name]
	if !ok {
		return &RegistryError{Table: name, Operation: "remove", Err: ErrTableNotFound}
	}
	delete(r.tables, name)
	r.retireLocked(s)

	r.logger.Info("Table removed", "table", name)
	return nil
}

// Close retires every table. Tables still leased are released when their
// leases end.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for name, s := range r.tables {
		r.retireLocked(s)
		delete(r.tables, name)
	}
}

func (r *Registry) retireLocked(s *slot) {
	s.retired = true
	if s.refs == 0 {
		s.table.Release()
	}
}

func (r *Registry) release(s *slot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.refs--
	if s.refs == 0 && s.retired {
		s.table.Release()
		r.logger.Debug("Retired table released", "table", s.info.Name, "version", s.info.Version)
	}
}

// Lease pins one version of a table until Release is called.
type Lease struct {
	registry *Registry
	slot     *slot
	once     sync.Once
}

// Table returns the leased table.
func (l *Lease) Table() *engine.Table {
	return l.slot.table
}

// Info returns the leased table's metadata.
func (l *Lease) Info() TableInfo {
	return l.slot.info
}

// Release ends the lease. It is safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.registry.release(l.slot)
	})
}
