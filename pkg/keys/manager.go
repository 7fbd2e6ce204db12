package keys

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/ldpos-client/config"
	"github.com/Klingon-tech/ldpos-client/internal/log"
	"github.com/Klingon-tech/ldpos-client/pkg/mss"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// Config describes one key domain of a wallet.
type Config struct {
	Domain        Domain
	NetworkSymbol string
	Address       types.Address
	// Offset is added to the starting index; it must be below half the
	// scheme's leaf count.
	Offset    uint64
	Store     Store
	Scheme    *mss.Scheme
	Logger    zerolog.Logger
	CacheSize int
}

// KeyState is a snapshot of the key a domain signs with next.
type KeyState struct {
	Domain        Domain
	KeyIndex      uint64
	LeafIndex     int
	TreeIndex     uint64
	PublicKey     string
	NextPublicKey string
	NextKeyIndex  uint64
}

// Manager owns the key index and trees of one domain. All signing goes
// through Sign, which holds the domain lock from payload construction until
// the advanced index is durable.
type Manager struct {
	cfg    Config
	log    zerolog.Logger
	leaves uint64
	cache  *treeCache

	mu       sync.Mutex
	ready    bool
	seed     []byte
	keyIndex uint64
	current  *mss.Tree
	next     *mss.Tree
	// pending is set when the leaf at keyIndex produced a signature but the
	// advanced index could not be persisted.
	pending bool
}

// NewManager validates cfg and returns an uninitialized manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Scheme == nil {
		cfg.Scheme = mss.Default()
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: %s domain has no store", config.ErrInvalidConfig, cfg.Domain)
	}
	if cfg.NetworkSymbol == "" {
		return nil, fmt.Errorf("%w: %s domain has no network symbol", config.ErrInvalidConfig, cfg.Domain)
	}
	leaves := uint64(cfg.Scheme.LeafCount())
	if cfg.Offset >= leaves/2 {
		return nil, fmt.Errorf("%w: %s key index offset %d must be below %d",
			config.ErrInvalidConfig, cfg.Domain, cfg.Offset, leaves/2)
	}
	cache, err := newTreeCache(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("tree cache: %w", err)
	}
	return &Manager{
		cfg:    cfg,
		log:    cfg.Logger.With().Str("domain", cfg.Domain.String()).Logger(),
		leaves: leaves,
		cache:  cache,
	}, nil
}

// Domain returns the managed domain.
func (m *Manager) Domain() Domain { return m.cfg.Domain }

// Offset returns the configured starting offset.
func (m *Manager) Offset() uint64 { return m.cfg.Offset }

// StorageKey returns the key the domain's index is persisted under.
func (m *Manager) StorageKey() string {
	return m.cfg.Domain.StorageKey(m.cfg.Address)
}

// LoadPersisted returns the locally persisted key index, or 0 if none is
// stored.
func (m *Manager) LoadPersisted(ctx context.Context) (uint64, error) {
	key := m.StorageKey()
	v, found, err := m.cfg.Store.LoadItem(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", key, err)
	}
	if !found {
		return 0, nil
	}
	idx, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("load %s: corrupt key index %q: %w", key, v, err)
	}
	return idx, nil
}

// Initialize persists startingKeyIndex and materializes the current and
// next trees. The domain is ready only if the write succeeds.
func (m *Manager) Initialize(ctx context.Context, seed []byte, startingKeyIndex uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.persist(ctx, startingKeyIndex); err != nil {
		return err
	}
	m.wipeLocked()
	m.seed = append([]byte(nil), seed...)
	m.keyIndex = startingKeyIndex
	m.pending = false
	m.loadTreesLocked()
	m.ready = true

	m.log.Info().
		Uint64("key_index", m.keyIndex).
		Uint64("tree_index", m.treeIndexLocked()).
		Msg("Key domain initialized")
	return nil
}

// Ready reports whether the domain has been initialized.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// KeyIndex returns the index of the next unused key.
func (m *Manager) KeyIndex() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return 0, fmt.Errorf("%s: %w", m.cfg.Domain, ErrDomainNotReady)
	}
	return m.keyIndex, nil
}

// CurrentLeafIndex returns keyIndex mod leaf count.
func (m *Manager) CurrentLeafIndex() (int, error) {
	idx, err := m.KeyIndex()
	if err != nil {
		return 0, err
	}
	return int(idx % m.leaves), nil
}

// State returns a snapshot of the key the next Sign will use.
func (m *Manager) State() (KeyState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return KeyState{}, fmt.Errorf("%s: %w", m.cfg.Domain, ErrDomainNotReady)
	}
	return m.stateLocked(), nil
}

// Sign builds a payload from the current key state, signs it with the
// current leaf, then persists keyIndex+1 and advances. The signature is
// returned only once the advanced index is durable. A build error consumes
// no key.
func (m *Manager) Sign(ctx context.Context, build func(KeyState) ([]byte, error)) (string, KeyState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return "", KeyState{}, fmt.Errorf("%s: %w", m.cfg.Domain, ErrDomainNotReady)
	}

	if m.pending {
		// The leaf at keyIndex already produced a signature; move past it
		// before signing anything else.
		if err := m.advanceLocked(ctx); err != nil {
			return "", KeyState{}, err
		}
		m.pending = false
		m.log.Warn().Uint64("key_index", m.keyIndex).Msg("Skipped key left pending by a failed persist")
	}

	state := m.stateLocked()
	payload, err := build(state)
	if err != nil {
		return "", KeyState{}, err
	}

	sig, err := m.cfg.Scheme.Sign(payload, m.current, state.LeafIndex)
	if err != nil {
		return "", KeyState{}, fmt.Errorf("sign with %s key %d: %w", m.cfg.Domain, state.KeyIndex, err)
	}

	if err := m.advanceLocked(ctx); err != nil {
		m.pending = true
		m.log.Error().Err(err).
			Uint64("key_index", state.KeyIndex).
			Msg("Key index not persisted, signature discarded")
		return "", KeyState{}, err
	}

	m.log.Debug().
		Uint64("key_index", state.KeyIndex).
		Int("leaf_index", state.LeafIndex).
		Msg("One-time key used")
	return sig, state, nil
}

// AdvanceTo moves the domain forward to index after persisting it. It
// returns false if index is not ahead of the current index.
func (m *Manager) AdvanceTo(ctx context.Context, index uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return false, fmt.Errorf("%s: %w", m.cfg.Domain, ErrDomainNotReady)
	}
	if index <= m.keyIndex {
		return false, nil
	}
	if err := m.persist(ctx, index); err != nil {
		return false, err
	}
	oldTree := m.treeIndexLocked()
	m.keyIndex = index
	m.pending = false
	if m.treeIndexLocked() != oldTree {
		m.loadTreesLocked()
	}
	m.log.Info().
		Uint64("key_index", index).
		Uint64("tree_index", m.treeIndexLocked()).
		Msg("Key index advanced")
	return true, nil
}

// VerifyKeyIndex reports whether publicKey and nextPublicKey are the roots
// this domain's seed produces for an account whose next key index is
// nextKeyIndex. The last used index is nextKeyIndex-1; an account that has
// never signed may report no keys at all.
func (m *Manager) VerifyKeyIndex(nextKeyIndex uint64, publicKey, nextPublicKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return false, fmt.Errorf("%s: %w", m.cfg.Domain, ErrDomainNotReady)
	}
	if nextKeyIndex == 0 && publicKey == "" && nextPublicKey == "" {
		return true, nil
	}
	treeIndex := ReportedTreeIndex(nextKeyIndex, int(m.leaves))
	return m.treeLocked(treeIndex).PublicRootHash() == publicKey &&
		m.treeLocked(treeIndex+1).PublicRootHash() == nextPublicKey, nil
}

// Seed returns a copy of the domain seed.
func (m *Manager) Seed() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, fmt.Errorf("%s: %w", m.cfg.Domain, ErrDomainNotReady)
	}
	return append([]byte(nil), m.seed...), nil
}

// Close zeroes the seed and tree secrets. The manager must be initialized
// again before further use.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wipeLocked()
	m.ready = false
}

func (m *Manager) wipeLocked() {
	for i := range m.seed {
		m.seed[i] = 0
	}
	m.seed = nil
	if m.current != nil {
		m.current.Wipe()
	}
	if m.next != nil {
		m.next.Wipe()
	}
	m.current, m.next = nil, nil
	m.cache.wipe()
}

// advanceLocked persists keyIndex+1, then advances in memory, rotating the
// trees when the index crosses a tree boundary.
func (m *Manager) advanceLocked(ctx context.Context) error {
	nextIndex := m.keyIndex + 1
	if err := m.persist(ctx, nextIndex); err != nil {
		return err
	}
	oldTree := m.treeIndexLocked()
	m.keyIndex = nextIndex
	if newTree := m.treeIndexLocked(); newTree != oldTree {
		m.current = m.next
		m.next = m.treeLocked(newTree + 1)
		m.log.Info().Uint64("tree_index", newTree).Msg("Key tree rotated")
	}
	return nil
}

func (m *Manager) persist(ctx context.Context, index uint64) error {
	key := m.StorageKey()
	if err := m.cfg.Store.SaveItem(ctx, key, strconv.FormatUint(index, 10)); err != nil {
		return &PersistenceError{Key: key, Err: err}
	}
	return nil
}

func (m *Manager) loadTreesLocked() {
	t := m.treeIndexLocked()
	m.current = m.treeLocked(t)
	m.next = m.treeLocked(t + 1)
}

func (m *Manager) treeIndexLocked() uint64 {
	return m.keyIndex / m.leaves
}

func (m *Manager) treeLocked(treeIndex uint64) *mss.Tree {
	return m.cache.get(treeIndex, func(i uint64) *mss.Tree {
		defer log.Benchmark(m.log, "derive tree")()
		return DeriveTree(m.cfg.Scheme, m.seed, m.cfg.NetworkSymbol, m.cfg.Domain, i)
	})
}

func (m *Manager) stateLocked() KeyState {
	return KeyState{
		Domain:        m.cfg.Domain,
		KeyIndex:      m.keyIndex,
		LeafIndex:     int(m.keyIndex % m.leaves),
		TreeIndex:     m.treeIndexLocked(),
		PublicKey:     m.current.PublicRootHash(),
		NextPublicKey: m.next.PublicRootHash(),
		NextKeyIndex:  m.keyIndex + 1,
	}
}
