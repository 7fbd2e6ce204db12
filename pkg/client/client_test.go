package client

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/Klingon-tech/ldpos-client/config"
	"github.com/Klingon-tech/ldpos-client/internal/storage"
	"github.com/Klingon-tech/ldpos-client/internal/wallet"
	"github.com/Klingon-tech/ldpos-client/pkg/adapter"
	"github.com/Klingon-tech/ldpos-client/pkg/keys"
	"github.com/Klingon-tech/ldpos-client/pkg/mss"
	"github.com/Klingon-tech/ldpos-client/pkg/tx"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// BIP-39 test vectors.
const (
	passphraseA = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	passphraseB = "legal winner thank year wave sausage worth useful legal winner thank yellow"
	passphraseC = "letter advice cage absurd amount doctor acoustic avoid letter advice cage above"
)

// fakeNetwork is an in-memory adapter. Posted transactions update the
// sender's sig key state the way a node applies them.
type fakeNetwork struct {
	mu       sync.Mutex
	symbol   string
	accounts map[types.Address]*adapter.Account
	posted   []*tx.Transaction
	closed   bool
	fail     error
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{symbol: "ldpos", accounts: map[types.Address]*adapter.Account{}}
}

func (n *fakeNetwork) GetNetworkSymbol(context.Context) (string, error) {
	return n.symbol, nil
}

func (n *fakeNetwork) GetAccount(_ context.Context, address types.Address) (*adapter.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return nil, n.fail
	}
	acct, ok := n.accounts[address]
	if !ok {
		return nil, adapter.ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

func (n *fakeNetwork) PostTransaction(_ context.Context, t *tx.Transaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.posted = append(n.posted, t)
	acct, ok := n.accounts[t.SenderAddress]
	if !ok {
		acct = &adapter.Account{Address: t.SenderAddress, Type: "sig", Balance: "0"}
		n.accounts[t.SenderAddress] = acct
	}
	if t.SigPublicKey != "" {
		acct.SigPublicKey = t.SigPublicKey
		acct.NextSigPublicKey = t.NextSigPublicKey
		acct.NextSigKeyIndex = t.NextSigKeyIndex
	}
	return nil
}

func (n *fakeNetwork) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

func (n *fakeNetwork) setAccount(a *adapter.Account) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accounts[a.Address] = a
}

// minimalNetwork supports only the required capabilities.
type minimalNetwork struct{}

func (minimalNetwork) GetNetworkSymbol(context.Context) (string, error) { return "ldpos", nil }

func (minimalNetwork) GetAccount(context.Context, types.Address) (*adapter.Account, error) {
	return nil, adapter.ErrAccountNotFound
}

// failingStore wraps a store and fails writes while fail is set.
type failingStore struct {
	keys.Store
	mu   sync.Mutex
	fail bool
}

func (s *failingStore) SaveItem(ctx context.Context, key, value string) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.Store.SaveItem(ctx, key, value)
}

func (s *failingStore) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func newStore() keys.Store {
	return storage.NewItemStore(storage.NewMemory())
}

func testSeed(t *testing.T, passphrase string) []byte {
	t.Helper()
	seed, err := wallet.PassphraseToSeed(passphrase)
	if err != nil {
		t.Fatalf("PassphraseToSeed() error: %v", err)
	}
	return seed
}

func newTestClient(t *testing.T, a adapter.Adapter, store keys.Store) *Client {
	t.Helper()
	c, err := New(Options{Adapter: a, Store: store})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func connectedClient(t *testing.T, a adapter.Adapter, store keys.Store, passphrase string) *Client {
	t.Helper()
	c := newTestClient(t, a, store)
	if err := c.Connect(context.Background(), ConnectOptions{Passphrase: passphrase}); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { c.Disconnect() })
	return c
}

func keyIndex(t *testing.T, c *Client, d keys.Domain) uint64 {
	t.Helper()
	idx, err := c.KeyIndex(d)
	if err != nil {
		t.Fatalf("KeyIndex(%s) error: %v", d, err)
	}
	return idx
}

func TestNew_Validation(t *testing.T) {
	bad := config.Default()
	bad.Keys.MultisigOffset = 16

	small, err := mss.New(8)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Keys.SigOffset = 4

	tests := []struct {
		name string
		opts Options
	}{
		{"no adapter", Options{Store: newStore()}},
		{"no store", Options{Adapter: newFakeNetwork()}},
		{"offset too large", Options{Config: bad, Adapter: newFakeNetwork(), Store: newStore()}},
		{"offset too large for scheme", Options{Config: cfg, Adapter: newFakeNetwork(), Store: newStore(), Scheme: small}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := newTestClient(t, newFakeNetwork(), newStore())
	ctx := context.Background()

	if _, err := c.WalletAddress(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("WalletAddress() error = %v", err)
	}
	if _, err := c.NetworkSymbol(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("NetworkSymbol() error = %v", err)
	}
	if _, err := c.KeyIndex(keys.Sig); !errors.Is(err, ErrNotConnected) {
		t.Errorf("KeyIndex() error = %v", err)
	}
	txn, _ := tx.Vote(types.Address("ldpos" + hex40)).Build()
	if _, err := c.PrepareTransaction(ctx, txn); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PrepareTransaction() error = %v", err)
	}
	if _, err := c.SyncKeyIndex(ctx, keys.Sig); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SyncKeyIndex() error = %v", err)
	}
	if c.Connected() {
		t.Error("Connected() = true before Connect")
	}
}

const hex40 = "00112233445566778899aabbccddeeff00112233"

func TestComputeWalletAddress(t *testing.T) {
	a1, err := ComputeWalletAddress(nil, passphraseA, "ldpos")
	if err != nil {
		t.Fatalf("ComputeWalletAddress() error: %v", err)
	}
	if err := a1.Validate("ldpos"); err != nil {
		t.Errorf("address %q invalid: %v", a1, err)
	}
	if len(a1) != len("ldpos")+2*types.AddressSize {
		t.Errorf("address length = %d", len(a1))
	}

	again, _ := ComputeWalletAddress(nil, passphraseA, "ldpos")
	if again != a1 {
		t.Error("address is not deterministic")
	}
	other, _ := ComputeWalletAddress(nil, passphraseB, "ldpos")
	if other == a1 {
		t.Error("different passphrases produced the same address")
	}
	otherNet, _ := ComputeWalletAddress(nil, passphraseA, "clsk")
	if otherNet.Hex() == a1.Hex() {
		t.Error("address body should depend on the network symbol")
	}

	if _, err := ComputeWalletAddress(nil, "not a passphrase", "ldpos"); err == nil {
		t.Error("ComputeWalletAddress() should reject an invalid passphrase")
	}
}

func TestConnect_FreshAccount(t *testing.T) {
	store := newStore()
	c := connectedClient(t, newFakeNetwork(), store, passphraseA)

	addr, err := c.WalletAddress()
	if err != nil {
		t.Fatalf("WalletAddress() error: %v", err)
	}
	want, _ := ComputeWalletAddress(nil, passphraseA, "ldpos")
	if addr != want {
		t.Errorf("WalletAddress() = %s, want %s", addr, want)
	}
	if sym, _ := c.NetworkSymbol(); sym != "ldpos" {
		t.Errorf("NetworkSymbol() = %q", sym)
	}

	wantIdx := map[keys.Domain]uint64{keys.Sig: 3, keys.Multisig: 10, keys.Forging: 2}
	for d, want := range wantIdx {
		if got := keyIndex(t, c, d); got != want {
			t.Errorf("%s key index = %d, want %d", d, got, want)
		}
		v, found, _ := store.LoadItem(context.Background(), d.StorageKey(addr))
		if !found {
			t.Errorf("%s starting index not persisted", d)
		} else if v != strconv.FormatUint(want, 10) {
			t.Errorf("%s persisted index = %q", d, v)
		}
	}
}

func TestConnect_UsesPersistedIndex(t *testing.T) {
	store := newStore()
	addr, _ := ComputeWalletAddress(nil, passphraseA, "ldpos")
	store.SaveItem(context.Background(), keys.Sig.StorageKey(addr), "20")

	c := connectedClient(t, newFakeNetwork(), store, passphraseA)
	if got := keyIndex(t, c, keys.Sig); got != 23 {
		t.Errorf("sig key index = %d, want 20+3", got)
	}
}

func TestConnect_UsesVerifiedNetworkIndex(t *testing.T) {
	net := newFakeNetwork()
	addr, _ := ComputeWalletAddress(nil, passphraseA, "ldpos")
	seed := testSeed(t, passphraseA)
	pub, nextPub := keys.PublicKeysFor(mss.Default(), seed, "ldpos", keys.Sig, 40)
	net.setAccount(&adapter.Account{
		Address:          addr,
		Balance:          "100",
		SigPublicKey:     pub,
		NextSigPublicKey: nextPub,
		NextSigKeyIndex:  40,
	})

	store := newStore()
	store.SaveItem(context.Background(), keys.Sig.StorageKey(addr), "12")

	c := connectedClient(t, net, store, passphraseA)
	if got := keyIndex(t, c, keys.Sig); got != 43 {
		t.Errorf("sig key index = %d, want max(12, 40)+3", got)
	}
}

func TestConnect_KeyIndexMismatch(t *testing.T) {
	net := newFakeNetwork()
	addr, _ := ComputeWalletAddress(nil, passphraseA, "ldpos")
	foreign := testSeed(t, passphraseB)
	pub, nextPub := keys.PublicKeysFor(mss.Default(), foreign, "ldpos", keys.Multisig, 500)
	net.setAccount(&adapter.Account{
		Address:               addr,
		MultisigPublicKey:     pub,
		NextMultisigPublicKey: nextPub,
		NextMultisigKeyIndex:  500,
	})

	c := newTestClient(t, net, newStore())
	err := c.Connect(context.Background(), ConnectOptions{Passphrase: passphraseA})
	var mismatch *KeyIndexMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Connect() error = %v, want *KeyIndexMismatchError", err)
	}
	if mismatch.Domain != keys.Multisig || mismatch.KeyIndex != 500 {
		t.Errorf("mismatch = %+v", mismatch)
	}
	if c.Connected() {
		t.Error("client connected despite mismatch")
	}
}

func TestConnect_Errors(t *testing.T) {
	ctx := context.Background()

	c := newTestClient(t, newFakeNetwork(), newStore())
	if err := c.Connect(ctx, ConnectOptions{Passphrase: "nope"}); err == nil {
		t.Error("Connect() should reject an invalid passphrase")
	}
	if err := c.Connect(ctx, ConnectOptions{Passphrase: passphraseA, ForgingPassphrase: "nope"}); err == nil {
		t.Error("Connect() should reject an invalid forging passphrase")
	}

	other := newFakeNetwork()
	other.symbol = "clsk"
	c = newTestClient(t, other, newStore())
	if err := c.Connect(ctx, ConnectOptions{Passphrase: passphraseA}); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("Connect() on another network error = %v, want ErrInvalidConfig", err)
	}

	down := newFakeNetwork()
	down.fail = errors.New("connection refused")
	c = newTestClient(t, down, newStore())
	if err := c.Connect(ctx, ConnectOptions{Passphrase: passphraseA}); err == nil {
		t.Error("Connect() should fail when the account lookup fails")
	}

	fs := &failingStore{Store: newStore(), fail: true}
	c = newTestClient(t, newFakeNetwork(), fs)
	err := c.Connect(ctx, ConnectOptions{Passphrase: passphraseA})
	var perr *keys.PersistenceError
	if !errors.As(err, &perr) {
		t.Errorf("Connect() with failing store error = %v, want *PersistenceError", err)
	}
	if c.Connected() {
		t.Error("client connected without a durable starting index")
	}
}

func TestConnect_DomainPassphrases(t *testing.T) {
	c := connectedClient(t, newFakeNetwork(), newStore(), passphraseA)
	c2 := newTestClient(t, newFakeNetwork(), newStore())
	err := c2.Connect(context.Background(), ConnectOptions{
		Passphrase:        passphraseA,
		ForgingPassphrase: passphraseC,
	})
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer c2.Disconnect()

	a1, _ := c.WalletAddress()
	a2, _ := c2.WalletAddress()
	if a1 != a2 {
		t.Error("a domain passphrase should not change the wallet address")
	}

	sig1, _ := c.domains[keys.Sig].State()
	sig2, _ := c2.domains[keys.Sig].State()
	if sig1.PublicKey != sig2.PublicKey {
		t.Error("sig domain should fall back to the main passphrase")
	}
	f1, _ := c.domains[keys.Forging].State()
	f2, _ := c2.domains[keys.Forging].State()
	if f1.PublicKey == f2.PublicKey {
		t.Error("forging domain should use its own passphrase")
	}
}

func TestDisconnect(t *testing.T) {
	net := newFakeNetwork()
	c := newTestClient(t, net, newStore())
	if err := c.Connect(context.Background(), ConnectOptions{Passphrase: passphraseA}); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	m := c.domains[keys.Sig]

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error: %v", err)
	}
	if !net.closed {
		t.Error("adapter not closed")
	}
	if _, err := c.WalletAddress(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("WalletAddress() after Disconnect error = %v", err)
	}
	if m.Ready() {
		t.Error("key domain still ready after Disconnect")
	}
}

func TestReconnect_ResumesFromStore(t *testing.T) {
	store := newStore()
	net := newFakeNetwork()
	c := connectedClient(t, net, store, passphraseA)
	for range 5 {
		txn, _ := tx.Transfer(types.Address("ldpos"+hex40), "1").Build()
		if _, err := c.PrepareTransaction(context.Background(), txn); err != nil {
			t.Fatalf("PrepareTransaction() error: %v", err)
		}
	}
	if got := keyIndex(t, c, keys.Sig); got != 8 {
		t.Fatalf("sig key index = %d, want 8", got)
	}
	c.Disconnect()

	// Nothing was posted, so only the local index protects the used keys.
	c2 := connectedClient(t, newFakeNetwork(), store, passphraseA)
	if got := keyIndex(t, c2, keys.Sig); got != 11 {
		t.Errorf("sig key index after reconnect = %d, want 8+3", got)
	}
}
