// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package votechain

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/votechain/contract"
	"github.com/danielhkuo/votechain/envelope"
	"github.com/danielhkuo/votechain/errs"
	"github.com/danielhkuo/votechain/models"
	"github.com/danielhkuo/votechain/notify"
	"github.com/danielhkuo/votechain/reconcile"
	"github.com/danielhkuo/votechain/session"
	"github.com/danielhkuo/votechain/store"
	"github.com/danielhkuo/votechain/wallet"
)

// Operation labels used in logs and notifications.
const (
	OpCreateElection    = "create election"
	OpVote              = "vote"
	OpCalculateResult   = "calculate election result"
	OpPause             = "pause contract"
	OpUnpause           = "unpause contract"
	OpTransferOwnership = "transfer ownership"
)

// Bookmarks persists the bookmarked election ids. *db.Bookmarks implements it.
type Bookmarks interface {
	List(ctx context.Context) ([]uint64, error)
	Add(ctx context.Context, id uint64) error
	Remove(ctx context.Context, id uint64) error
	Toggle(ctx context.Context, id uint64) (bool, error)
}

type Config struct {
	Connector       session.Connector
	Indexer         reconcile.Indexer
	Bookmarks       Bookmarks
	Notifier        *notify.Feed
	Store           *store.Store
	ContractAddress common.Address
	SupportedChains []uint64
	PollInterval    time.Duration
	// SummaryLimit is how many elections a refresh lists.
	SummaryLimit int
}

// Service joins the wallet session, the contract and the indexer behind one
// API. It is safe for concurrent use.
type Service struct {
	cfg        Config
	store      *store.Store
	notes      *notify.Feed
	session    *session.Manager
	reconciler *reconcile.Reconciler
	envelope   *envelope.Envelope
	bookmarks  Bookmarks
}

func New(cfg Config) *Service {
	if cfg.Store == nil {
		cfg.Store = store.New()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NewFeed(notify.DefaultRecent)
	}
	if cfg.SummaryLimit <= 0 {
		cfg.SummaryLimit = reconcile.DefaultLimit
	}
	if cfg.ContractAddress == (common.Address{}) {
		cfg.ContractAddress = contract.DefaultAddress
	}

	s := &Service{
		cfg:        cfg,
		store:      cfg.Store,
		notes:      cfg.Notifier,
		reconciler: reconcile.New(cfg.Indexer),
		bookmarks:  cfg.Bookmarks,
	}
	s.session = session.NewManager(session.Config{
		Connector:       cfg.Connector,
		Store:           cfg.Store,
		Notifier:        cfg.Notifier,
		Refresher:       s,
		ContractAddress: cfg.ContractAddress,
		SupportedChains: cfg.SupportedChains,
		PollInterval:    cfg.PollInterval,
	})
	s.envelope = envelope.New(s.session, s, cfg.Notifier)
	return s
}

// Close ends the session and waits for background work.
func (s *Service) Close(ctx context.Context) {
	s.session.Close(ctx)
}

func (s *Service) Snapshot() *store.Snapshot { return s.store.Load() }

func (s *Service) Notifications() []notify.Notification { return s.notes.Recent() }

// Session

func (s *Service) Session() models.SessionView { return s.session.View() }

// Connect parses kind and connects the wallet.
func (s *Service) Connect(ctx context.Context, kind string) (models.SessionView, error) {
	k, err := wallet.ParseKind(kind)
	if err != nil {
		return s.session.View(), errs.Newf(errs.InvalidInput, "connect", "%v", err)
	}
	return s.session.Connect(ctx, k)
}

func (s *Service) Disconnect(ctx context.Context) models.SessionView {
	s.session.Disconnect(ctx)
	return s.session.View()
}

// Wait blocks until queued wallet events have been applied.
func (s *Service) Wait() { s.session.Wait() }

// Refresh reloads the contract summary, the election listing and every
// cached election detail for generation gen. Contract reads need an active
// session on a supported chain; indexer reads do not. Results computed for
// a stale generation are dropped.
func (s *Service) Refresh(ctx context.Context, gen uint64) error {
	binding, activeErr := s.session.Active()
	cached := cachedIDs(s.store.Load())

	var (
		summary   models.ContractSummary
		summaries []models.ElectionSummary
		details   = make([]*models.Election, len(cached))
	)

	g, gctx := errgroup.WithContext(ctx)
	if activeErr == nil {
		g.Go(func() error {
			total, err := binding.TotalElection(gctx)
			summary.TotalElections = total
			return err
		})
		g.Go(func() error {
			paused, err := binding.Paused(gctx)
			summary.Paused = paused
			return err
		})
		g.Go(func() error {
			owner, err := binding.Owner(gctx)
			if err == nil {
				summary.Owner = &owner
			}
			return err
		})
	}
	g.Go(func() error {
		var err error
		summaries, err = s.reconciler.FetchElectionSummaries(gctx, s.cfg.SummaryLimit)
		return err
	})
	for i, id := range cached {
		g.Go(func() error {
			e, err := s.reconciler.FetchElectionDetail(gctx, id)
			details[i] = e
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	applied := s.store.UpdateIf(gen, func(snap *store.Snapshot) {
		if activeErr == nil {
			snap.Contract = summary
		} else {
			snap.Contract = models.ContractSummary{}
		}
		snap.Summaries = summaries
		for i, id := range cached {
			if details[i] == nil {
				delete(snap.Elections, id)
				continue
			}
			snap.Elections[id] = details[i]
		}
	})
	if !applied {
		slog.Debug("stale refresh discarded", "generation", gen)
		return nil
	}
	slog.Info("state refreshed",
		"generation", gen,
		"total_elections", summary.TotalElections,
		"listed", len(summaries),
		"cached", len(cached),
	)
	return nil
}

func cachedIDs(snap *store.Snapshot) []uint64 {
	ids := make([]uint64, 0, len(snap.Elections))
	for id := range snap.Elections {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Contract

// ContractSummary returns the last refreshed summary and whether the active
// account owns the contract.
func (s *Service) ContractSummary() models.ContractResponse {
	snap := s.store.Load()
	return models.ContractResponse{Summary: snap.Contract, IsOwner: s.IsOwner()}
}

// IsOwner reports whether the active account is the contract owner.
func (s *Service) IsOwner() bool {
	account, ok := s.session.Account()
	owner := s.store.Load().Contract.Owner
	if !ok || owner == nil {
		return false
	}
	return strings.EqualFold(account.Hex(), owner.Hex())
}

// CreateElection validates req and submits it.
func (s *Service) CreateElection(ctx context.Context, req models.CreateElectionRequest) (*models.TransactionResult, error) {
	names := make([]string, len(req.Candidates))
	descriptions := make([]string, len(req.Candidates))
	for i, c := range req.Candidates {
		names[i] = strings.TrimSpace(c.Name)
		descriptions[i] = strings.TrimSpace(c.Description)
	}
	name := strings.TrimSpace(req.Name)

	if err := contract.ValidateCreateElection(name, names, descriptions, req.DurationDays); err != nil {
		s.notes.Notify(notify.Failure(notify.SourceUser, "Failed to "+OpCreateElection, err))
		return nil, err
	}

	return s.envelope.Execute(ctx, OpCreateElection, func(ctx context.Context, b *contract.Binding) (*contract.Tx, error) {
		return b.CreateElection(ctx, name, strings.TrimSpace(req.Description), strings.TrimSpace(req.Image), names, descriptions, req.DurationDays)
	}, name, len(names), req.DurationDays)
}

// Vote casts the active account's vote. A vote already visible in the
// indexer is refused locally; otherwise the contract decides.
func (s *Service) Vote(ctx context.Context, electionID, candidateID uint64) (*models.TransactionResult, error) {
	if account, ok := s.session.Account(); ok {
		voted, err := s.reconciler.HasVoted(ctx, electionID, account)
		switch {
		case err != nil:
			slog.Warn("vote pre-check skipped", "election", electionID, "error", err)
		case voted:
			err := errs.Newf(errs.InvalidInput, "vote", "You have already voted in this election")
			s.notes.Notify(notify.Failure(notify.SourceUser, "Failed to "+OpVote, err))
			return nil, err
		}
	}

	return s.envelope.Execute(ctx, OpVote, func(ctx context.Context, b *contract.Binding) (*contract.Tx, error) {
		return b.Vote(ctx, electionID, candidateID)
	}, electionID, candidateID)
}

func (s *Service) CalculateElectionResult(ctx context.Context, electionID uint64) (*models.TransactionResult, error) {
	return s.envelope.Execute(ctx, OpCalculateResult, func(ctx context.Context, b *contract.Binding) (*contract.Tx, error) {
		return b.CalculateElectionResult(ctx, electionID)
	}, electionID)
}

func (s *Service) Pause(ctx context.Context) (*models.TransactionResult, error) {
	return s.envelope.Execute(ctx, OpPause, func(ctx context.Context, b *contract.Binding) (*contract.Tx, error) {
		return b.Pause(ctx)
	})
}

func (s *Service) Unpause(ctx context.Context) (*models.TransactionResult, error) {
	return s.envelope.Execute(ctx, OpUnpause, func(ctx context.Context, b *contract.Binding) (*contract.Tx, error) {
		return b.Unpause(ctx)
	})
}

// TransferOwnership hands the contract to newOwner, a hex address.
func (s *Service) TransferOwnership(ctx context.Context, newOwner string) (*models.TransactionResult, error) {
	if !common.IsHexAddress(newOwner) {
		err := errs.Newf(errs.InvalidInput, "transferOwnership", "%q is not a valid address", newOwner)
		s.notes.Notify(notify.Failure(notify.SourceUser, "Failed to "+OpTransferOwnership, err))
		return nil, err
	}
	owner := common.HexToAddress(newOwner)
	return s.envelope.Execute(ctx, OpTransferOwnership, func(ctx context.Context, b *contract.Binding) (*contract.Tx, error) {
		return b.TransferToNewOwner(ctx, owner)
	}, owner.Hex())
}

// GetElection reads the contract's own view of an election.
func (s *Service) GetElection(ctx context.Context, electionID uint64) (*models.OnchainElection, error) {
	b, err := s.session.Active()
	if err != nil {
		return nil, err
	}
	return b.GetElection(ctx, electionID)
}

func (s *Service) GetElectionResult(ctx context.Context, electionID uint64) (string, error) {
	b, err := s.session.Active()
	if err != nil {
		return "", err
	}
	return b.GetElectionResult(ctx, electionID)
}

// Indexer

// Elections lists up to limit elections, most recent first.
func (s *Service) Elections(ctx context.Context, limit int) ([]models.ElectionSummary, error) {
	summaries, err := s.reconciler.FetchElectionSummaries(ctx, limit)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit == s.cfg.SummaryLimit {
		s.store.Update(func(snap *store.Snapshot) { snap.Summaries = summaries })
	}
	return summaries, nil
}

// Election returns the reconciled election and keeps it cached so later
// refreshes reload it.
func (s *Service) Election(ctx context.Context, electionID uint64) (*models.Election, error) {
	e, err := s.reconciler.FetchElectionDetail(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		s.forget(electionID)
		return nil, errs.Newf(errs.NotFound, "election", "election %d not found", electionID)
	}
	s.store.Update(func(snap *store.Snapshot) { snap.Elections[electionID] = e })
	return e, nil
}

func (s *Service) forget(electionID uint64) {
	if _, ok := s.store.Load().Election(electionID); !ok {
		return
	}
	s.store.Update(func(snap *store.Snapshot) {
		delete(snap.Elections, electionID)
		delete(snap.RecentVotes, electionID)
	})
}

func (s *Service) RecentVotes(ctx context.Context, electionID uint64, limit int) ([]models.VoteRecord, error) {
	votes, err := s.reconciler.FetchRecentVotes(ctx, electionID, limit)
	if err != nil {
		return nil, err
	}
	s.store.Update(func(snap *store.Snapshot) { snap.RecentVotes[electionID] = votes })
	return votes, nil
}

// HasVoted checks the indexer for a vote by account, or by the active
// account when account is nil. The answer is advisory.
func (s *Service) HasVoted(ctx context.Context, electionID uint64, account *common.Address) (common.Address, bool, error) {
	var who common.Address
	if account != nil {
		who = *account
	} else {
		a, ok := s.session.Account()
		if !ok {
			return common.Address{}, false, errs.Newf(errs.NotConnected, "hasVoted", "connect a wallet or pass an account")
		}
		who = a
	}
	voted, err := s.reconciler.HasVoted(ctx, electionID, who)
	return who, voted, err
}

func (s *Service) UserVotes(ctx context.Context, account common.Address) ([]models.VoteRecord, error) {
	return s.reconciler.FetchUserVotes(ctx, account)
}

// Bookmarks

var errNoBookmarks = errs.Newf(errs.NotFound, "bookmarks", "bookmarks are not configured")

func (s *Service) Bookmarks(ctx context.Context) ([]uint64, error) {
	if s.bookmarks == nil {
		return nil, errNoBookmarks
	}
	return s.bookmarks.List(ctx)
}

func (s *Service) Bookmark(ctx context.Context, electionID uint64) error {
	if s.bookmarks == nil {
		return errNoBookmarks
	}
	if err := s.bookmarks.Add(ctx, electionID); err != nil {
		return err
	}
	s.notes.Notify(notify.Success("Election added to bookmarks!"))
	return nil
}

func (s *Service) Unbookmark(ctx context.Context, electionID uint64) error {
	if s.bookmarks == nil {
		return errNoBookmarks
	}
	if err := s.bookmarks.Remove(ctx, electionID); err != nil {
		return err
	}
	s.notes.Notify(notify.Success("Election removed from bookmarks!"))
	return nil
}

// ToggleBookmark flips the bookmark and reports the new state.
func (s *Service) ToggleBookmark(ctx context.Context, electionID uint64) (bool, error) {
	if s.bookmarks == nil {
		return false, errNoBookmarks
	}
	on, err := s.bookmarks.Toggle(ctx, electionID)
	if err != nil {
		return false, err
	}
	if on {
		s.notes.Notify(notify.Success("Election added to bookmarks!"))
	} else {
		s.notes.Notify(notify.Success("Election removed from bookmarks!"))
	}
	return on, nil
}
