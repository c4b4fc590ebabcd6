// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/danielhkuo/votechain/contract"
	"github.com/danielhkuo/votechain/errs"
	"github.com/danielhkuo/votechain/models"
	"github.com/danielhkuo/votechain/notify"
	"github.com/danielhkuo/votechain/store"
	"github.com/danielhkuo/votechain/wallet"
)

// DefaultDeriveTimeout bounds one event-driven derivation including its refresh.
const DefaultDeriveTimeout = 30 * time.Second

// Connector resolves wallet connections. *wallet.Adapter implements it.
type Connector interface {
	Connect(ctx context.Context, kind wallet.Kind) (*wallet.Conn, error)
	Teardown(ctx context.Context) error
}

// Refresher reloads contract and indexer state for generation gen. Writes
// must be dropped once gen is no longer current.
type Refresher interface {
	Refresh(ctx context.Context, gen uint64) error
}

type Config struct {
	Connector       Connector
	Store           *store.Store
	Notifier        notify.Notifier
	Refresher       Refresher
	ContractAddress common.Address
	SupportedChains []uint64
	// PollInterval is the receipt polling interval of derived bindings.
	PollInterval  time.Duration
	DeriveTimeout time.Duration
}

// watcher is the manager's single subscription to one provider handle.
type watcher struct {
	sub     event.Subscription
	handle  wallet.Handle
	barrier chan chan struct{}
	done    chan struct{}
}

// Manager owns the wallet session. All fields below mu change together and
// every change is published to the store tagged with the generation.
type Manager struct {
	cfg       Config
	supported map[uint64]bool

	mu      sync.Mutex
	gen     uint64
	state   string
	kind    wallet.Kind
	conn    *wallet.Conn
	account *common.Address
	chainID *uint64
	chainOK bool
	signer  *wallet.Signer
	binding *contract.Binding
	watch   *watcher

	derivations sync.WaitGroup
	loops       sync.WaitGroup
}

func NewManager(cfg Config) *Manager {
	if cfg.DeriveTimeout <= 0 {
		cfg.DeriveTimeout = DefaultDeriveTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = contract.DefaultPollInterval
	}
	if cfg.Store == nil {
		cfg.Store = store.New()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NewFeed(0)
	}
	m := &Manager{
		cfg:       cfg,
		supported: make(map[uint64]bool, len(cfg.SupportedChains)),
		state:     models.StateDisconnected,
	}
	for _, id := range cfg.SupportedChains {
		m.supported[id] = true
	}
	return m
}

// Generation is the current session generation.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

func (m *Manager) View() models.SessionView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// Account is the active account, if any.
func (m *Manager) Account() (common.Address, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.account == nil || m.state != models.StateConnected {
		return common.Address{}, false
	}
	return *m.account, true
}

// Supported reports whether chainID is in the supported set.
func (m *Manager) Supported(chainID uint64) bool {
	return m.supported[chainID]
}

// Active returns the contract binding for the active session.
func (m *Manager) Active() (*contract.Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != models.StateConnected || m.account == nil {
		return nil, errs.Newf(errs.NotConnected, "session", "please connect your wallet")
	}
	if !m.chainOK {
		return nil, errs.Newf(errs.UnsupportedNetwork, "session", "chain %d is not supported, please switch networks", *m.chainID)
	}
	if m.binding == nil || m.binding.From() != *m.account {
		return nil, errs.Newf(errs.NotConnected, "session", "account change in progress")
	}
	return m.binding, nil
}

func (m *Manager) viewLocked() models.SessionView {
	v := models.SessionView{
		State:          m.state,
		ChainSupported: m.chainOK,
		Generation:     m.gen,
	}
	if m.kind != 0 {
		v.Kind = m.kind.String()
	}
	if m.account != nil {
		a := *m.account
		v.Account = &a
	}
	if m.chainID != nil {
		id := *m.chainID
		v.ChainID = &id
	}
	return v
}

func (m *Manager) publishLocked() {
	view := m.viewLocked()
	gen := m.gen
	m.cfg.Store.Update(func(s *store.Snapshot) {
		s.Session = view
		s.Generation = gen
	})
}

// publishResetLocked publishes the reset session together with empty
// contract and election state in one store update.
func (m *Manager) publishResetLocked() {
	view := m.viewLocked()
	gen := m.gen
	m.cfg.Store.Update(func(s *store.Snapshot) {
		s.Session = view
		s.Generation = gen
		s.Contract = models.ContractSummary{}
		s.Summaries = nil
		s.Elections = make(map[uint64]*models.Election)
		s.RecentVotes = make(map[uint64][]models.VoteRecord)
	})
}

func (m *Manager) bumpLocked() uint64 {
	m.gen++
	return m.gen
}

func (m *Manager) resetLocked() {
	m.state = models.StateDisconnected
	m.kind = 0
	m.conn = nil
	m.account = nil
	m.chainID = nil
	m.chainOK = false
	m.signer = nil
	m.binding = nil
}

// bindLocked derives the contract binding for s. There is none on an
// unsupported chain.
func (m *Manager) bindLocked(s *wallet.Signer) *contract.Binding {
	if !m.chainOK {
		return nil
	}
	return contract.Bind(m.cfg.ContractAddress, s.Account(), s).WithPollInterval(m.cfg.PollInterval)
}

type established struct {
	conn    *wallet.Conn
	account common.Address
	chainID uint64
	signer  *wallet.Signer
}

func (m *Manager) establish(ctx context.Context, kind wallet.Kind) (*established, error) {
	conn, err := m.cfg.Connector.Connect(ctx, kind)
	if err != nil {
		return nil, err
	}
	accounts, err := conn.RequestAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, errs.Newf(errs.NotConnected, "connect", "wallet exposed no accounts")
	}
	chainID, err := conn.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	signer, err := conn.SignerFor(ctx, accounts[0])
	if err != nil {
		return nil, err
	}
	return &established{conn: conn, account: accounts[0], chainID: chainID, signer: signer}, nil
}

// Connect runs Disconnected → Connecting → Connected for kind. It fails with
// AlreadyConnecting unless the session is disconnected. On failure the
// session is reset and a notification is sent.
func (m *Manager) Connect(ctx context.Context, kind wallet.Kind) (models.SessionView, error) {
	m.mu.Lock()
	if m.state != models.StateDisconnected {
		view := m.viewLocked()
		m.mu.Unlock()
		return view, errs.Newf(errs.AlreadyConnecting, "connect", "wallet is already %s", view.State)
	}
	gen := m.bumpLocked()
	m.state = models.StateConnecting
	m.kind = kind
	m.publishLocked()
	m.mu.Unlock()

	slog.Info("connecting wallet", "kind", kind, "generation", gen)

	est, err := m.establish(ctx, kind)
	if err != nil {
		return m.failConnect(gen, err)
	}

	m.mu.Lock()
	if m.gen != gen {
		view := m.viewLocked()
		m.mu.Unlock()
		slog.Info("discarding superseded connection", "kind", kind, "generation", gen)
		return view, errs.Newf(errs.NotConnected, "connect", "connection attempt was cancelled")
	}
	m.subscribeLocked(est.conn)
	m.conn = est.conn
	m.account = &est.account
	m.chainID = &est.chainID
	m.chainOK = m.supported[est.chainID]
	m.signer = est.signer
	m.binding = m.bindLocked(est.signer)
	m.state = models.StateConnected
	m.publishLocked()
	view := m.viewLocked()
	m.mu.Unlock()

	slog.Info("wallet connected", "kind", kind, "account", est.account.Hex(), "chain_id", est.chainID, "generation", gen)
	m.cfg.Notifier.Notify(notify.Success("Wallet connected: " + est.account.Hex()))

	if !view.ChainSupported {
		m.notifyUnsupported(est.chainID)
		return view, nil
	}
	m.refresh(ctx, gen)
	return m.View(), nil
}

func (m *Manager) failConnect(gen uint64, err error) (models.SessionView, error) {
	m.mu.Lock()
	current := m.gen == gen
	if current {
		m.resetLocked()
		m.publishResetLocked()
	}
	view := m.viewLocked()
	m.mu.Unlock()

	slog.Warn("wallet connection failed", "error", err, "generation", gen, "current", current)
	if current {
		m.cfg.Notifier.Notify(notify.Failure(notify.SourceUser, "Failed to connect wallet", err))
	}
	return view, err
}

// subscribeLocked subscribes once per handle. Reconnecting through the same
// handle keeps the existing subscription.
func (m *Manager) subscribeLocked(conn *wallet.Conn) {
	h := conn.Handle()
	if m.watch != nil && m.watch.handle == h {
		return
	}
	if m.watch != nil {
		m.watch.sub.Unsubscribe()
	}

	ch := make(chan wallet.Event)
	w := &watcher{
		sub:     conn.Subscribe(ch),
		handle:  h,
		barrier: make(chan chan struct{}),
		done:    make(chan struct{}),
	}
	m.watch = w
	m.loops.Add(1)
	go m.loop(w, ch)
}

func (m *Manager) loop(w *watcher, ch <-chan wallet.Event) {
	defer m.loops.Done()
	defer close(w.done)

	for {
		select {
		case ev := <-ch:
			m.handleEvent(w, ev)
		case ack := <-w.barrier:
			close(ack)
		case <-w.sub.Err():
			return
		}
	}
}

// handleEvent runs on the watcher goroutine. It records the event and bumps
// the generation synchronously; signer and binding are derived afterwards.
func (m *Manager) handleEvent(w *watcher, ev wallet.Event) {
	m.mu.Lock()
	if m.watch != w {
		m.mu.Unlock()
		return
	}
	if m.state != models.StateConnected {
		state := m.state
		m.mu.Unlock()
		slog.Debug("ignoring wallet event", "event", ev.Type, "state", state)
		return
	}

	switch ev.Type {
	case wallet.EventAccountsChanged:
		if len(ev.Accounts) == 0 {
			m.walletDisconnectLocked()
			return
		}
		account := ev.Accounts[0]
		m.account = &account
		m.signer = nil
		m.binding = nil
		gen := m.bumpLocked()
		m.publishLocked()
		m.derivations.Add(1)
		m.mu.Unlock()

		slog.Info("wallet account changed", "account", account.Hex(), "generation", gen)
		go m.derive(gen)

	case wallet.EventChainChanged:
		id := ev.ChainID
		m.chainID = &id
		m.chainOK = m.supported[id]
		m.binding = nil
		gen := m.bumpLocked()
		m.publishLocked()
		m.derivations.Add(1)
		m.mu.Unlock()

		slog.Info("wallet chain changed", "chain_id", id, "supported", m.supported[id], "generation", gen)
		if !m.supported[id] {
			m.notifyUnsupported(id)
		}
		go m.derive(gen)

	case wallet.EventDisconnect:
		m.walletDisconnectLocked()

	default:
		m.mu.Unlock()
	}
}

// walletDisconnectLocked resets the session on the provider's behalf. The
// subscription stays so a reconnect through the same handle reuses it.
// It releases mu.
func (m *Manager) walletDisconnectLocked() {
	m.resetLocked()
	gen := m.bumpLocked()
	m.publishResetLocked()
	m.mu.Unlock()

	slog.Info("wallet disconnected by provider", "generation", gen)
	m.cfg.Notifier.Notify(notify.Notification{
		Level:   notify.LevelWarning,
		Kind:    errs.NotConnected,
		Message: "Disconnected by wallet",
		Source:  notify.SourceWallet,
	})
}

// derive rebuilds signer and binding from the latest account and chain. The
// result applies only if gen is still current.
func (m *Manager) derive(gen uint64) {
	defer m.derivations.Done()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DeriveTimeout)
	defer cancel()

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	conn, account := m.conn, *m.account
	m.mu.Unlock()

	signer, err := conn.SignerFor(ctx, account)

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		slog.Debug("discarding stale derivation", "generation", gen)
		return
	}
	if err != nil {
		m.resetLocked()
		m.bumpLocked()
		m.publishResetLocked()
		m.mu.Unlock()

		slog.Warn("session derivation failed", "account", account.Hex(), "error", err)
		m.cfg.Notifier.Notify(notify.Failure(notify.SourceWallet, "Failed to switch account", err))
		return
	}
	m.signer = signer
	m.binding = m.bindLocked(signer)
	m.publishLocked()
	supported := m.chainOK
	m.mu.Unlock()

	if supported {
		m.refresh(ctx, gen)
	}
}

func (m *Manager) refresh(ctx context.Context, gen uint64) {
	if m.cfg.Refresher == nil {
		return
	}
	if err := m.cfg.Refresher.Refresh(ctx, gen); err != nil {
		slog.Warn("refresh failed", "error", err, "generation", gen)
		if m.Generation() == gen {
			n := notify.Failure(notify.SourceSystem, "Failed to load contract data", err)
			n.Level = notify.LevelWarning
			m.cfg.Notifier.Notify(n)
		}
	}
}

func (m *Manager) notifyUnsupported(chainID uint64) {
	m.cfg.Notifier.Notify(notify.Notification{
		Level:   notify.LevelWarning,
		Kind:    errs.UnsupportedNetwork,
		Message: fmt.Sprintf("Chain %d is not supported, please switch networks", chainID),
		Source:  notify.SourceWallet,
	})
}

// Disconnect ends the session on the user's behalf. It is idempotent,
// removes only the manager's own subscription and tears down a remote
// pairing client; teardown errors are logged.
func (m *Manager) Disconnect(ctx context.Context) {
	m.mu.Lock()
	wasActive := m.state != models.StateDisconnected
	gen := m.bumpLocked()
	if m.watch != nil {
		m.watch.sub.Unsubscribe()
		m.watch = nil
	}
	m.resetLocked()
	m.publishResetLocked()
	m.mu.Unlock()

	if err := m.cfg.Connector.Teardown(ctx); err != nil {
		slog.Warn("wallet teardown failed", "error", err)
	}

	if wasActive {
		slog.Info("wallet disconnected", "generation", gen)
		m.cfg.Notifier.Notify(notify.Notification{
			Level:   notify.LevelInfo,
			Message: "Wallet disconnected",
			Source:  notify.SourceUser,
		})
	}
}

// Wait blocks until every wallet event delivered so far has been handled and
// every derivation it started has been applied or discarded.
func (m *Manager) Wait() {
	m.mu.Lock()
	w := m.watch
	m.mu.Unlock()

	if w != nil {
		ack := make(chan struct{})
		select {
		case w.barrier <- ack:
			<-ack
		case <-w.done:
		}
	}
	m.derivations.Wait()
}

// Close disconnects and waits for every goroutine the manager started.
func (m *Manager) Close(ctx context.Context) {
	m.Disconnect(ctx)
	m.derivations.Wait()
	m.loops.Wait()
}
