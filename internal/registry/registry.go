package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/internal/strategy"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// entry is one live strategy in the registry.
type entry struct {
	strategy contracts.Strategy
	meta     contracts.StrategyMeta
	hash     string
}

// knownRow is what the metadata store remembers about a script across
// restarts: enough to tell added from updated and to keep activation
// state sticky.
type knownRow struct {
	hash   string
	active bool
}

// ⭐ SSOT: 전략 등록과 해석은 여기서만
// Registry maintains the authoritative set of known strategies. The
// definition directory is the source of truth for behavior; the
// metadata store persists activation state and scan history so they
// survive restarts.
type Registry struct {
	dir   string
	deps  strategy.Deps
	store contracts.StrategyMetadataStore // nil when running without persistence
	log   *logger.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	known   map[string]knownRow
}

func New(dir string, deps strategy.Deps, store contracts.StrategyMetadataStore, log *logger.Logger) *Registry {
	return &Registry{
		dir:     dir,
		deps:    deps,
		store:   store,
		log:     log.WithComponent("registry"),
		entries: make(map[string]*entry),
		known:   make(map[string]knownRow),
	}
}

// LoadPersisted pulls stored registry rows into memory so the next scan
// can tell re-discovered strategies from genuinely new ones and restore
// their activation state. Rows without a definition file stay dormant
// until a file brings them back.
func (r *Registry) LoadPersisted(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	rows, err := r.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load persisted strategies: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		r.known[row.Meta.ScriptID] = knownRow{
			hash:   row.Hash,
			active: row.Meta.IsActive,
		}
	}
	r.log.WithFields(map[string]interface{}{
		"count": len(rows),
	}).Debug("Loaded persisted strategy metadata")
	return nil
}

// candidate is a definition parsed and constructed outside the lock.
type candidate struct {
	id       string
	filename string
	hash     string
	meta     contracts.StrategyMeta
	strategy contracts.Strategy
}

// Scan enumerates the definition directory, loads every candidate that
// honors the strategy contract, and upserts it keyed by script ID. One
// bad file never aborts the scan; it is recorded and skipped. Scanning
// twice with no filesystem changes reports nothing added and nothing
// updated.
func (r *Registry) Scan(ctx context.Context) (*contracts.ScanReport, error) {
	files, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read strategy dir %s: %w", r.dir, err)
	}

	report := &contracts.ScanReport{}
	now := time.Now()

	// Parse and construct outside the lock; merge under it.
	var built []candidate
	seen := make(map[string]string)
	for _, f := range files {
		if f.IsDir() || !IsDefinitionFile(f.Name()) {
			continue
		}
		report.Scanned++

		id := ScriptID(f.Name())
		if prev, dup := seen[id]; dup {
			report.Failed = append(report.Failed, contracts.ScanFailure{
				Candidate: f.Name(),
				Reason:    fmt.Sprintf("duplicate script id %q, already provided by %s", id, prev),
			})
			continue
		}

		raw, err := os.ReadFile(filepath.Join(r.dir, f.Name()))
		if err != nil {
			report.Failed = append(report.Failed, contracts.ScanFailure{
				Candidate: f.Name(), Reason: err.Error(),
			})
			continue
		}

		cand, err := r.build(id, f.Name(), raw, now)
		if err != nil {
			report.Failed = append(report.Failed, contracts.ScanFailure{
				Candidate: f.Name(), Reason: err.Error(),
			})
			continue
		}
		seen[id] = f.Name()
		built = append(built, cand)
	}

	added, updated := r.merge(built)
	report.Added = added
	report.Updated = updated

	r.persistScan(ctx, built, added, updated)

	r.log.WithFields(map[string]interface{}{
		"scanned": report.Scanned,
		"added":   len(report.Added),
		"updated": len(report.Updated),
		"failed":  len(report.Failed),
	}).Info("Strategy scan complete")
	return report, nil
}

// build loads one definition into a ready-to-register candidate. Any
// failure here is a contract violation for that file.
func (r *Registry) build(id, filename string, raw []byte, now time.Time) (candidate, error) {
	def, err := ParseDefinition(raw)
	if err != nil {
		return candidate{}, err
	}

	meta := contracts.StrategyMeta{
		ScriptID:          id,
		DisplayName:       def.Meta.DisplayName,
		Description:       def.Meta.Description,
		StrategyType:      def.StrategyType(),
		Timeframe:         def.Meta.Timeframe,
		IndicatorsUsed:    def.Meta.Indicators,
		EntryExitCriteria: def.Meta.EntryExitCriteria,
		ScoringLogic:      def.Meta.ScoringLogic,
		SourceLocation:    filename,
		IsActive:          true,
		LastScanned:       now,
	}

	st, err := strategy.New(def.Rule.Kind, meta, &def.Rule.Params, r.deps)
	if err != nil {
		return candidate{}, &contracts.ContractViolation{Candidate: filename, Reason: err.Error()}
	}
	return candidate{id: id, filename: filename, hash: DefinitionHash(raw), meta: meta, strategy: st}, nil
}

// merge swaps the built candidates into the live table and classifies
// each as added, updated, or unchanged. Activation state carries over
// from the previous entry or from persisted knowledge.
func (r *Registry) merge(built []candidate) (added, updated []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range built {
		prev, live := r.entries[c.id]
		know, knew := r.known[c.id]

		switch {
		case live:
			c.meta.IsActive = prev.meta.IsActive
			if prev.hash != c.hash {
				updated = append(updated, c.id)
			} else {
				// Unchanged: refresh the scan stamp only.
				c.meta.LastScanned = time.Now()
			}
		case knew:
			c.meta.IsActive = know.active
			if know.hash != c.hash {
				updated = append(updated, c.id)
			}
		default:
			added = append(added, c.id)
		}

		e := &entry{strategy: c.strategy, meta: c.meta, hash: c.hash}
		r.entries[c.id] = e
		r.known[c.id] = knownRow{hash: c.hash, active: c.meta.IsActive}
	}
	sort.Strings(added)
	sort.Strings(updated)
	return added, updated
}

// persistScan mirrors scan results into the metadata store. Storage
// trouble downgrades to a warning; the in-memory registry stays
// authoritative for this process.
func (r *Registry) persistScan(ctx context.Context, built []candidate, added, updated []string) {
	if r.store == nil {
		return
	}
	changed := make(map[string]bool, len(added)+len(updated))
	for _, id := range added {
		changed[id] = true
	}
	for _, id := range updated {
		changed[id] = true
	}
	for _, c := range built {
		if !changed[c.id] {
			continue
		}
		meta, ok := r.Get(c.id)
		if !ok {
			continue
		}
		if err := r.store.UpsertMeta(ctx, meta, c.hash); err != nil {
			r.log.WithFields(map[string]interface{}{
				"script_id": c.id,
				"error":     err.Error(),
			}).Warn("Failed to persist strategy metadata")
		}
	}
}

// List returns registered strategies ordered by script ID.
func (r *Registry) List(activeOnly bool) []contracts.StrategyMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contracts.StrategyMeta, 0, len(r.entries))
	for _, e := range r.entries {
		if activeOnly && !e.meta.IsActive {
			continue
		}
		out = append(out, e.meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScriptID < out[j].ScriptID })
	return out
}

// Get returns one strategy's metadata.
func (r *Registry) Get(id string) (contracts.StrategyMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return contracts.StrategyMeta{}, false
	}
	return e.meta, true
}

// ActiveIDs returns the IDs of active strategies, sorted. This is the
// default strategy set when a caller names none.
func (r *Registry) ActiveIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, e := range r.entries {
		if e.meta.IsActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Resolve maps requested IDs to live strategies, preserving request
// order. Unknown IDs land in missing; an explicitly requested strategy
// resolves whether or not it is active.
func (r *Registry) Resolve(ids []string) ([]contracts.ResolvedStrategy, []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []contracts.ResolvedStrategy
	var missing []string
	for _, id := range ids {
		e, ok := r.entries[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		found = append(found, contracts.ResolvedStrategy{ID: id, Strategy: e.strategy})
	}
	return found, missing
}

// SetActive flips one strategy's activation flag. The definition file
// is not touched; inactive strategies drop out of the default set but
// stay registered.
func (r *Registry) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.RLock()
	_, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("strategy %s: %w", id, contracts.ErrNotFound)
	}

	if r.store != nil {
		if err := r.store.SetActive(ctx, id, active); err != nil {
			return fmt.Errorf("persist activation for %s: %w", id, err)
		}
	}

	// Re-fetch under the write lock: a concurrent scan may have swapped
	// the entry while the store call was in flight.
	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		e.meta.IsActive = active
		r.known[id] = knownRow{hash: e.hash, active: active}
	}
	r.mu.Unlock()

	r.log.WithFields(map[string]interface{}{
		"script_id": id,
		"active":    active,
	}).Info("Strategy activation changed")
	return nil
}

// Remove drops a strategy from the registry and the metadata store.
// With deleteFile the definition file goes too; otherwise it stays on
// disk and a later scan re-adds the strategy.
func (r *Registry) Remove(ctx context.Context, id string, deleteFile bool) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("strategy %s: %w", id, contracts.ErrNotFound)
	}
	source := e.meta.SourceLocation
	delete(r.entries, id)
	delete(r.known, id)
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("remove persisted strategy %s: %w", id, err)
		}
	}

	if deleteFile {
		if err := os.Remove(filepath.Join(r.dir, source)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete definition %s: %w", source, err)
		}
	}

	r.log.WithFields(map[string]interface{}{
		"script_id":    id,
		"file_deleted": deleteFile,
	}).Info("Strategy removed")
	return nil
}

// Upload validates a definition in memory, writes it into the
// definition directory only once it passes, and registers it. A file
// that fails the contract is never written.
func (r *Registry) Upload(ctx context.Context, filename string, content []byte) (contracts.StrategyMeta, error) {
	if err := validateUploadName(filename); err != nil {
		return contracts.StrategyMeta{}, err
	}

	id := ScriptID(filename)
	r.mu.RLock()
	if prev, ok := r.entries[id]; ok && prev.meta.SourceLocation != filename {
		r.mu.RUnlock()
		return contracts.StrategyMeta{}, fmt.Errorf("%w: script id %q already provided by %s",
			contracts.ErrInvalidInput, id, prev.meta.SourceLocation)
	}
	r.mu.RUnlock()

	cand, err := r.build(id, filename, content, time.Now())
	if err != nil {
		return contracts.StrategyMeta{}, err
	}

	path := filepath.Join(r.dir, filename)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return contracts.StrategyMeta{}, fmt.Errorf("write definition %s: %w", filename, err)
	}

	added, updated := r.merge([]candidate{cand})
	r.persistScan(ctx, []candidate{cand}, added, updated)

	meta, _ := r.Get(id)
	r.log.WithFields(map[string]interface{}{
		"script_id": id,
		"filename":  filename,
		"added":     len(added) == 1,
	}).Info("Strategy uploaded")
	return meta, nil
}

// Definition reads back the raw definition file for one strategy.
func (r *Registry) Definition(id string) (string, []byte, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return "", nil, fmt.Errorf("strategy %s: %w", id, contracts.ErrNotFound)
	}

	raw, err := os.ReadFile(filepath.Join(r.dir, e.meta.SourceLocation))
	if err != nil {
		return "", nil, fmt.Errorf("read definition for %s: %w", id, err)
	}
	return e.meta.SourceLocation, raw, nil
}

func validateUploadName(filename string) error {
	if filename != filepath.Base(filename) || strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("%w: filename must be a bare name, got %q", contracts.ErrInvalidInput, filename)
	}
	if !IsDefinitionFile(filename) {
		return fmt.Errorf("%w: filename must be a .yaml or .yml definition, got %q", contracts.ErrInvalidInput, filename)
	}
	if ScriptID(filename) == "" {
		return fmt.Errorf("%w: filename %q yields an empty script id", contracts.ErrInvalidInput, filename)
	}
	return nil
}
