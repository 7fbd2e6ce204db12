// ldpos-cli is a command-line wallet for LDPoS networks. It signs with
// one-time hash-based keys and talks to a node over JSON-RPC.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/Klingon-tech/ldpos-client/config"
	"github.com/Klingon-tech/ldpos-client/internal/log"
	"github.com/Klingon-tech/ldpos-client/internal/rpcclient"
	"github.com/Klingon-tech/ldpos-client/internal/storage"
	"github.com/Klingon-tech/ldpos-client/internal/wallet"
	"github.com/Klingon-tech/ldpos-client/pkg/adapter"
	"github.com/Klingon-tech/ldpos-client/pkg/client"
	"github.com/Klingon-tech/ldpos-client/pkg/keys"
	"github.com/Klingon-tech/ldpos-client/pkg/tx"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		fatal("%v", err)
	}
	if flags.Help || len(flags.Args) == 0 {
		usage()
		if flags.Help {
			return
		}
		os.Exit(1)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]

	switch cmd {
	case "address":
		cmdAddress(cfg)
	case "wallet":
		cmdWallet(cfg, cmdArgs)
	case "account":
		cmdAccount(ctx, cfg, cmdArgs)
	case "send":
		cmdSend(ctx, cfg, cmdArgs)
	case "vote":
		cmdVote(ctx, cfg, cmdArgs, true)
	case "unvote":
		cmdVote(ctx, cfg, cmdArgs, false)
	case "sync":
		cmdSync(ctx, cfg, cmdArgs)
	case "txs":
		cmdTxs(ctx, cfg, cmdArgs)
	case "blocks":
		cmdBlocks(ctx, cfg, cmdArgs)
	case "pending":
		cmdPending(ctx, cfg)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	config.PrintUsage(os.Stderr)
	fmt.Fprint(os.Stderr, `
Commands:
  address                         Derive the wallet address of a passphrase
  wallet create --name <n>        Create a wallet with a new passphrase
  wallet import --name <n> --passphrase "..."
                                  Import a wallet from its passphrase
  wallet list                     List wallets
  wallet address --wallet <w>     Show a wallet's address
  wallet delete --wallet <w> [--forget-indices]
                                  Delete a wallet file

  account [--wallet <w> | <addr>] Show an account and its key state
  send --wallet <w> --to <addr> --amount <n> [--fee <n>] [--message <m>]
                                  Sign and post a transfer
  vote --wallet <w> --delegate <addr> [--fee <n>]
                                  Vote for a delegate
  unvote --wallet <w> --delegate <addr> [--fee <n>]
                                  Withdraw a vote
  sync --wallet <w>               Sync local key indices with the network

  txs <addr> [--outbound] [--from <ms>] [--limit <n>]
                                  List an account's transactions
  blocks [--from <height>] [--limit <n>]
                                  List blocks (default: latest)
  pending                         Show the pending transaction count
`)
}

// ── address ─────────────────────────────────────────────────────────────

func cmdAddress(cfg *config.Config) {
	passphrase, err := readSecret("Enter passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	addr, err := client.ComputeWalletAddress(nil, string(passphrase), cfg.NetworkSymbol)
	clear(passphrase)
	if err != nil {
		fatal("derive address: %v", err)
	}
	fmt.Println(addr)
}

// ── wallet ──────────────────────────────────────────────────────────────

func cmdWallet(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: ldpos-cli wallet <create|import|list|address|delete> [flags]")
	}

	ks := openKeystore(cfg)
	switch args[0] {
	case "create":
		cmdWalletCreate(cfg, ks, args[1:])
	case "import":
		cmdWalletImport(cfg, ks, args[1:])
	case "list":
		cmdWalletList(ks)
	case "address":
		cmdWalletAddress(ks, args[1:])
	case "delete":
		cmdWalletDelete(cfg, ks, args[1:])
	default:
		fatal("Unknown wallet command: %s\nUsage: ldpos-cli wallet <create|import|list|address|delete> [flags]", args[0])
	}
}

func cmdWalletCreate(cfg *config.Config, ks *wallet.Keystore, args []string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: ldpos-cli wallet create --name <name>")
	}

	passphrase, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate passphrase: %v", err)
	}
	fmt.Println("Passphrase (write this down!):")
	fmt.Printf("  %s\n\n", passphrase)

	saveWallet(cfg, ks, *name, passphrase)
}

func cmdWalletImport(cfg *config.Config, ks *wallet.Keystore, args []string) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	passphrase := fs.String("passphrase", "", "BIP-39 passphrase (12 words)")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: ldpos-cli wallet import --name <name> [--passphrase \"word1 word2 ...\"]")
	}
	p := *passphrase
	if p == "" {
		secret, err := readSecret("Enter passphrase: ")
		if err != nil {
			fatal("read passphrase: %v", err)
		}
		p = string(secret)
		clear(secret)
	}
	if !wallet.ValidateMnemonic(p) {
		fatal("invalid passphrase")
	}

	saveWallet(cfg, ks, *name, p)
}

func saveWallet(cfg *config.Config, ks *wallet.Keystore, name, passphrase string) {
	password, err := readSecret("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	defer clear(password)
	confirm, err := readSecret("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	defer clear(confirm)
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	addr, err := client.ComputeWalletAddress(nil, passphrase, cfg.NetworkSymbol)
	if err != nil {
		fatal("derive address: %v", err)
	}
	if err := ks.Create(name, passphrase, addr, cfg.NetworkSymbol, password, wallet.DefaultParams()); err != nil {
		fatal("create wallet: %v", err)
	}

	fmt.Printf("Wallet %q created\n", name)
	fmt.Printf("Address: %s\n", addr)
}

func cmdWalletList(ks *wallet.Keystore) {
	entries, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("No wallets found")
		return
	}
	for _, e := range entries {
		fmt.Printf("  %-20s %s  %s\n", e.Name, e.Address, e.CreatedAt.Format("2006-01-02"))
	}
}

func cmdWalletAddress(ks *wallet.Keystore, args []string) {
	fs := flag.NewFlagSet("wallet address", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: ldpos-cli wallet address --wallet <name>")
	}
	e, err := ks.Info(*name)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(e.Address)
}

func cmdWalletDelete(cfg *config.Config, ks *wallet.Keystore, args []string) {
	fs := flag.NewFlagSet("wallet delete", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	forget := fs.Bool("forget-indices", false, "Also remove the wallet's local key indices")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: ldpos-cli wallet delete --wallet <name> [--forget-indices]")
	}
	e, err := ks.Info(*name)
	if err != nil {
		fatal("%v", err)
	}
	if err := ks.Delete(*name); err != nil {
		fatal("delete wallet: %v", err)
	}
	fmt.Printf("Wallet %q deleted\n", *name)

	if !*forget {
		return
	}
	// Indices are only safe to drop if the network still reports them;
	// Connect resumes from max(local, network).
	store, err := storage.Open(cfg)
	if err != nil {
		fatal("open key index store: %v", err)
	}
	defer store.Close()
	for _, d := range keys.Domains() {
		if err := store.DeleteItem(context.Background(), d.StorageKey(e.Address)); err != nil {
			fatal("forget %s key index: %v", d, err)
		}
	}
	fmt.Println("Local key indices removed")
}

// ── account ─────────────────────────────────────────────────────────────

func cmdAccount(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("account", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	var addr types.Address
	switch {
	case *name != "":
		e, err := openKeystore(cfg).Info(*name)
		if err != nil {
			fatal("%v", err)
		}
		addr = e.Address
	case fs.NArg() == 1:
		addr = parseAddress(cfg, fs.Arg(0))
	default:
		fatal("Usage: ldpos-cli account [--wallet <name> | <address>]")
	}

	a := rpcclient.FromConfig(cfg)
	defer a.Close()
	acct, err := a.GetAccount(ctx, addr)
	if errors.Is(err, adapter.ErrAccountNotFound) {
		fmt.Printf("Account %s has no transactions yet\n", addr)
		return
	}
	if err != nil {
		fatal("get account: %v", err)
	}

	fmt.Printf("Address:  %s\n", acct.Address)
	fmt.Printf("Type:     %s\n", acct.Type)
	fmt.Printf("Balance:  %s\n", acct.Balance)
	for _, d := range keys.Domains() {
		info := acct.KeyInfo(d)
		if info.PublicKey == "" {
			continue
		}
		fmt.Printf("%-9s next key index %d\n", d.String()+":", info.NextKeyIndex)
	}
	if acct.RequiredSignatureCount > 0 {
		fmt.Printf("Multisig: %d signatures required\n", acct.RequiredSignatureCount)
	}
}

// ── send / vote ─────────────────────────────────────────────────────────

func cmdSend(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	to := fs.String("to", "", "Recipient address")
	amount := fs.String("amount", "", "Amount in base units")
	fee := fs.String("fee", "0", "Fee in base units")
	message := fs.String("message", "", "Optional message")
	fs.Parse(args)

	if *name == "" || *to == "" || *amount == "" {
		fatal("Usage: ldpos-cli send --wallet <name> --to <addr> --amount <n> [--fee <n>] [--message <m>]")
	}

	t, err := tx.Transfer(parseAddress(cfg, *to), *amount).Fee(*fee).Message(*message).Build()
	if err != nil {
		fatal("%v", err)
	}
	signAndPost(ctx, cfg, *name, t)
}

func cmdVote(ctx context.Context, cfg *config.Config, args []string, vote bool) {
	cmd := "vote"
	if !vote {
		cmd = "unvote"
	}
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	delegate := fs.String("delegate", "", "Delegate address")
	fee := fs.String("fee", "0", "Fee in base units")
	fs.Parse(args)

	if *name == "" || *delegate == "" {
		fatal("Usage: ldpos-cli %s --wallet <name> --delegate <addr> [--fee <n>]", cmd)
	}

	addr := parseAddress(cfg, *delegate)
	b := tx.Vote(addr)
	if !vote {
		b = tx.Unvote(addr)
	}
	t, err := b.Fee(*fee).Build()
	if err != nil {
		fatal("%v", err)
	}
	signAndPost(ctx, cfg, *name, t)
}

func signAndPost(ctx context.Context, cfg *config.Config, name string, t *tx.Transaction) {
	c, done := openSession(ctx, cfg, name)
	defer done()

	signed, err := c.PrepareTransaction(ctx, t)
	if err != nil {
		fatal("sign transaction: %v", err)
	}
	if err := c.PostTransaction(ctx, signed); err != nil {
		fatal("post transaction: %v", err)
	}
	fmt.Printf("Submitted: %s\n", signed.ID)
}

// ── sync ────────────────────────────────────────────────────────────────

func cmdSync(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: ldpos-cli sync --wallet <name>")
	}

	c, done := openSession(ctx, cfg, *name)
	defer done()

	advanced, err := c.SyncAllKeyIndexes(ctx)
	if err != nil {
		fatal("sync: %v", err)
	}
	for _, d := range keys.Domains() {
		idx, err := c.KeyIndex(d)
		if err != nil {
			fatal("%v", err)
		}
		state := "up to date"
		if advanced[d] {
			state = "advanced"
		}
		fmt.Printf("%-9s %d (%s)\n", d.String()+":", idx, state)
	}
}

// ── queries ─────────────────────────────────────────────────────────────

func cmdTxs(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("txs", flag.ExitOnError)
	outbound := fs.Bool("outbound", false, "List sent instead of received transactions")
	from := fs.Int64("from", 0, "Start timestamp in milliseconds")
	limit := fs.Int("limit", 20, "Maximum number of transactions")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("Usage: ldpos-cli txs <address> [--outbound] [--from <ms>] [--limit <n>]")
	}
	addr := parseAddress(cfg, fs.Arg(0))

	a := rpcclient.FromConfig(cfg)
	defer a.Close()
	query := a.GetInboundTransactions
	if *outbound {
		query = a.GetOutboundTransactions
	}
	txs, err := query(ctx, addr, *from, *limit)
	if err != nil {
		fatal("list transactions: %v", err)
	}
	printJSON(txs)
}

func cmdBlocks(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("blocks", flag.ExitOnError)
	from := fs.Uint64("from", 0, "Start height (default: latest)")
	limit := fs.Int("limit", 10, "Maximum number of blocks")
	fs.Parse(args)

	a := rpcclient.FromConfig(cfg)
	defer a.Close()

	height := *from
	if height == 0 {
		top, err := a.GetMaxBlockHeight(ctx)
		if err != nil {
			fatal("get max block height: %v", err)
		}
		if top == 0 {
			fmt.Println("No blocks")
			return
		}
		height = 1
		if n := uint64(max(*limit, 1)); top > n {
			height = top - n + 1
		}
	}
	blocks, err := a.GetBlocksFromHeight(ctx, height, *limit)
	if err != nil {
		fatal("list blocks: %v", err)
	}
	for _, b := range blocks {
		fmt.Printf("%8d  %s  %s  %d txs\n", b.Height, b.ID, b.ForgerAddress, len(b.Transactions))
	}
}

func cmdPending(ctx context.Context, cfg *config.Config) {
	a := rpcclient.FromConfig(cfg)
	defer a.Close()
	n, err := a.GetPendingTransactionCount(ctx)
	if err != nil {
		fatal("get pending transaction count: %v", err)
	}
	fmt.Printf("Pending: %d\n", n)
}

// ── Session helpers ─────────────────────────────────────────────────────

// openSession unlocks a wallet and connects a signing client for it. The
// returned func disconnects and closes the key index store.
func openSession(ctx context.Context, cfg *config.Config, name string) (*client.Client, func()) {
	password, err := readSecret("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	passphrase, entry, err := openKeystore(cfg).Load(name, password)
	clear(password)
	if err != nil {
		fatal("%v", err)
	}
	if entry.NetworkSymbol != cfg.NetworkSymbol {
		fatal("wallet %q belongs to network %q, not %q", name, entry.NetworkSymbol, cfg.NetworkSymbol)
	}

	if err := config.EnsureDataDirs(cfg); err != nil {
		fatal("create data dirs: %v", err)
	}
	store, err := storage.Open(cfg)
	if err != nil {
		fatal("open key index store: %v", err)
	}

	c, err := client.New(client.Options{
		Config:  cfg,
		Adapter: rpcclient.FromConfig(cfg),
		Store:   store,
	})
	if err != nil {
		store.Close()
		fatal("%v", err)
	}
	if err := c.Connect(ctx, client.ConnectOptions{Passphrase: passphrase}); err != nil {
		store.Close()
		var mismatch *client.KeyIndexMismatchError
		if errors.As(err, &mismatch) {
			fatal("%v\nThe wallet's keys on the network were not derived from this passphrase.", err)
		}
		fatal("connect: %v", err)
	}
	return c, func() {
		if err := c.Disconnect(); err != nil {
			log.Client.Warn().Err(err).Msg("Disconnect failed")
		}
		if err := store.Close(); err != nil {
			log.Storage.Warn().Err(err).Msg("Key index store close failed")
		}
	}
}

func openKeystore(cfg *config.Config) *wallet.Keystore {
	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	return ks
}

func parseAddress(cfg *config.Config, s string) types.Address {
	addr, err := types.ParseAddress(s, cfg.NetworkSymbol)
	if err != nil {
		fatal("invalid address %q: %v", s, err)
	}
	return addr
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("encode output: %v", err)
	}
	fmt.Println(string(out))
}

func readSecret(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return secret, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
