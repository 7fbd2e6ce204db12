package client

import (
	"context"
	"errors"
	"testing"

	"github.com/Klingon-tech/ldpos-client/pkg/adapter"
	"github.com/Klingon-tech/ldpos-client/pkg/keys"
	"github.com/Klingon-tech/ldpos-client/pkg/mss"
)

// postFrom signs n transfers with c and posts them to network.
func postFrom(t *testing.T, c *Client, network *fakeNetwork, n int) {
	t.Helper()
	for range n {
		out, err := c.PrepareTransaction(context.Background(), transfer(t, "1"))
		if err != nil {
			t.Fatalf("PrepareTransaction() error: %v", err)
		}
		if err := c.PostTransaction(context.Background(), out); err != nil {
			t.Fatalf("PostTransaction() error: %v", err)
		}
	}
}

func TestSyncKeyIndex(t *testing.T) {
	network := newFakeNetwork()
	behind := connectedClient(t, network, newStore(), passphraseA)
	ahead := connectedClient(t, network, newStore(), passphraseA)
	ctx := context.Background()

	postFrom(t, ahead, network, 5)
	if got := keyIndex(t, ahead, keys.Sig); got != 8 {
		t.Fatalf("ahead sig key index = %d, want 8", got)
	}

	advanced, err := behind.SyncKeyIndex(ctx, keys.Sig)
	if err != nil {
		t.Fatalf("SyncKeyIndex() error: %v", err)
	}
	if !advanced {
		t.Error("SyncKeyIndex() = false, want true")
	}
	if got := keyIndex(t, behind, keys.Sig); got != 8 {
		t.Errorf("synced sig key index = %d, want 8", got)
	}

	// Already in step.
	advanced, err = behind.SyncKeyIndex(ctx, keys.Sig)
	if err != nil || advanced {
		t.Errorf("second SyncKeyIndex() = %v, %v; want false, nil", advanced, err)
	}

	// Never moves backwards.
	advanced, err = ahead.SyncKeyIndex(ctx, keys.Sig)
	if err != nil || advanced {
		t.Errorf("SyncKeyIndex() on a client ahead of the network = %v, %v; want false, nil", advanced, err)
	}
	if got := keyIndex(t, ahead, keys.Sig); got != 8 {
		t.Errorf("ahead sig key index = %d, want 8", got)
	}
}

func TestSyncKeyIndex_Mismatch(t *testing.T) {
	network := newFakeNetwork()
	c := connectedClient(t, network, newStore(), passphraseA)
	addr, _ := c.WalletAddress()

	foreign := testSeed(t, passphraseB)
	pub, next := keys.PublicKeysFor(mss.Default(), foreign, "ldpos", keys.Forging, 70)
	network.setAccount(&adapter.Account{
		Address:              addr,
		Balance:              "0",
		ForgingPublicKey:     pub,
		NextForgingPublicKey: next,
		NextForgingKeyIndex:  70,
	})

	_, err := c.SyncKeyIndex(context.Background(), keys.Forging)
	var mismatch *KeyIndexMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("SyncKeyIndex() error = %v, want *KeyIndexMismatchError", err)
	}
	if mismatch.Domain != keys.Forging || mismatch.KeyIndex != 70 {
		t.Errorf("mismatch = %+v", mismatch)
	}
	if got := keyIndex(t, c, keys.Forging); got != 2 {
		t.Errorf("forging key index = %d, want 2", got)
	}
}

func TestSyncKeyIndex_FreshAccount(t *testing.T) {
	c := connectedClient(t, newFakeNetwork(), newStore(), passphraseA)

	advanced, err := c.SyncKeyIndex(context.Background(), keys.Multisig)
	if err != nil || advanced {
		t.Errorf("SyncKeyIndex() = %v, %v; want false, nil", advanced, err)
	}

	all, err := c.SyncAllKeyIndexes(context.Background())
	if err != nil {
		t.Fatalf("SyncAllKeyIndexes() error: %v", err)
	}
	for _, d := range keys.Domains() {
		if v, ok := all[d]; !ok || v {
			t.Errorf("%s: advanced = %v, present = %v", d, v, ok)
		}
	}
}

func TestSyncAllKeyIndexes(t *testing.T) {
	network := newFakeNetwork()
	behind := connectedClient(t, network, newStore(), passphraseA)
	ahead := connectedClient(t, network, newStore(), passphraseA)
	addr, _ := ahead.WalletAddress()
	postFrom(t, ahead, network, 2)

	seed := testSeed(t, passphraseA)
	network.mu.Lock()
	acct := network.accounts[addr]
	acct.MultisigPublicKey, acct.NextMultisigPublicKey = keys.PublicKeysFor(mss.Default(), seed, "ldpos", keys.Multisig, 45)
	acct.NextMultisigKeyIndex = 45
	network.mu.Unlock()

	advanced, err := behind.SyncAllKeyIndexes(context.Background())
	if err != nil {
		t.Fatalf("SyncAllKeyIndexes() error: %v", err)
	}
	want := map[keys.Domain]bool{keys.Sig: true, keys.Multisig: true, keys.Forging: false}
	for d, w := range want {
		if advanced[d] != w {
			t.Errorf("%s advanced = %v, want %v", d, advanced[d], w)
		}
	}
	if got := keyIndex(t, behind, keys.Sig); got != 5 {
		t.Errorf("sig key index = %d, want 5", got)
	}
	if got := keyIndex(t, behind, keys.Multisig); got != 45 {
		t.Errorf("multisig key index = %d, want 45", got)
	}
	if got := keyIndex(t, behind, keys.Forging); got != 2 {
		t.Errorf("forging key index = %d, want 2", got)
	}
}

func TestSyncKeyIndex_Errors(t *testing.T) {
	network := newFakeNetwork()
	c := connectedClient(t, network, newStore(), passphraseA)
	network.mu.Lock()
	network.fail = errors.New("connection refused")
	network.mu.Unlock()

	if _, err := c.SyncKeyIndex(context.Background(), keys.Sig); err == nil {
		t.Error("SyncKeyIndex() should surface adapter errors")
	}
	if _, err := c.SyncAllKeyIndexes(context.Background()); err == nil {
		t.Error("SyncAllKeyIndexes() should surface adapter errors")
	}

	offline := newTestClient(t, network, newStore())
	if _, err := offline.SyncKeyIndex(context.Background(), keys.Sig); !errors.Is(err, ErrNotConnected) {
		t.Errorf("error = %v, want ErrNotConnected", err)
	}
}
