package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/Klingon-tech/ldpos-client/internal/log"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

const (
	keystoreVersion = 1
	walletExt       = ".wallet"
)

// Keystore errors.
var (
	ErrWalletExists   = errors.New("wallet already exists")
	ErrWalletNotFound = errors.New("wallet not found")
	ErrInvalidName    = errors.New("invalid wallet name")
)

// keystoreFile is the on-disk JSON format of one wallet.
type keystoreFile struct {
	Version             int           `json:"version"`
	CreatedAt           time.Time     `json:"created_at"`
	NetworkSymbol       string        `json:"network_symbol"`
	Address             types.Address `json:"address"`
	EncryptedPassphrase []byte        `json:"encrypted_passphrase"`
}

// Entry is the public metadata of a stored wallet.
type Entry struct {
	Name          string
	NetworkSymbol string
	Address       types.Address
	CreatedAt     time.Time
}

// Keystore keeps encrypted wallet passphrases in a directory, one file per
// wallet.
type Keystore struct {
	path string
}

// NewKeystore returns a keystore over path, creating the directory if needed.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

func (ks *Keystore) walletPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(ks.path, name+walletExt), nil
}

// Create stores passphrase encrypted under password. The address and
// network symbol are kept in clear so wallets can be listed without a
// password.
func (ks *Keystore) Create(name, passphrase string, address types.Address, networkSymbol string, password []byte, params EncryptionParams) error {
	path, err := ks.walletPath(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %q", ErrWalletExists, name)
	}
	if err := address.Validate(networkSymbol); err != nil {
		return fmt.Errorf("wallet %q: %w", name, err)
	}

	plain := []byte(NormalizeMnemonic(passphrase))
	defer clear(plain)
	sealed, err := Encrypt(plain, password, params)
	if err != nil {
		return fmt.Errorf("encrypt passphrase: %w", err)
	}

	kf := keystoreFile{
		Version:             keystoreVersion,
		CreatedAt:           time.Now().UTC(),
		NetworkSymbol:       networkSymbol,
		Address:             address,
		EncryptedPassphrase: sealed,
	}
	if err := writeKeystoreFile(path, &kf); err != nil {
		return err
	}
	log.Wallet.Info().Str("wallet", name).Str("address", string(address)).Msg("Wallet created")
	return nil
}

// Load decrypts and returns the passphrase of a wallet.
func (ks *Keystore) Load(name string, password []byte) (string, Entry, error) {
	kf, err := ks.read(name)
	if err != nil {
		return "", Entry{}, err
	}
	plain, err := Decrypt(kf.EncryptedPassphrase, password)
	if err != nil {
		return "", Entry{}, fmt.Errorf("decrypt wallet %q: %w", name, err)
	}
	defer clear(plain)
	return string(plain), kf.entry(name), nil
}

// Info returns the metadata of a wallet without decrypting it.
func (ks *Keystore) Info(name string) (Entry, error) {
	kf, err := ks.read(name)
	if err != nil {
		return Entry{}, err
	}
	return kf.entry(name), nil
}

// List returns the metadata of every wallet, sorted by name. Unreadable
// files are skipped.
func (ks *Keystore) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var entries []Entry
	for _, e := range dirEntries {
		if e.IsDir() || filepath.Ext(e.Name()) != walletExt {
			continue
		}
		name := strings.TrimSuffix(e.Name(), walletExt)
		info, err := ks.Info(name)
		if err != nil {
			log.Wallet.Warn().Err(err).Str("wallet", name).Msg("Skipping unreadable wallet")
			continue
		}
		entries = append(entries, info)
	}
	return entries, nil
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	path, err := ks.walletPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %q", ErrWalletNotFound, name)
		}
		return fmt.Errorf("delete wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) read(name string) (*keystoreFile, error) {
	path, err := ks.walletPath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrWalletNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}

func (kf *keystoreFile) entry(name string) Entry {
	return Entry{
		Name:          name,
		NetworkSymbol: kf.NetworkSymbol,
		Address:       kf.Address,
		CreatedAt:     kf.CreatedAt,
	}
}

func writeKeystoreFile(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}
