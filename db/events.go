// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/danielhkuo/votechain/models"
)

// EventStore answers the indexer queries from local event tables. The
// service itself only reads; the Record* writers exist for an external
// loader and for fixtures, and nothing in this binary calls them.
type EventStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewEventStore(db *sql.DB, dialect Dialect) *EventStore {
	return &EventStore{db: db, dialect: dialect}
}

// voterKey is the stored form of an address; lookups are case-insensitive.
func voterKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *EventStore) insertCreated(ctx context.Context, ex execer, r models.ElectionCreatedRecord) error {
	_, err := ex.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO election_created (entity_id, election_id, creator, name, description, image, deadline, block_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_id) DO NOTHING`),
		r.EntityID, int64(r.ElectionID), voterKey(r.Creator), r.Name, r.Description, r.Image, r.Deadline, r.BlockTimestamp)
	if err != nil {
		return fmt.Errorf("failed to record election %d: %w", r.ElectionID, err)
	}
	return nil
}

func (s *EventStore) insertCandidate(ctx context.Context, ex execer, r models.CandidateCreatedRecord) error {
	_, err := ex.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO candidate_created (entity_id, election_id, candidate_id, name, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (entity_id) DO NOTHING`),
		r.EntityID, int64(r.ElectionID), int64(r.CandidateID), r.Name, r.Description)
	if err != nil {
		return fmt.Errorf("failed to record candidate %d of election %d: %w", r.CandidateID, r.ElectionID, err)
	}
	return nil
}

func (s *EventStore) insertVote(ctx context.Context, ex execer, r models.VoteRecord) error {
	_, err := ex.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO vote_submitted (entity_id, election_id, voter_address, candidate_id, block_timestamp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (entity_id) DO NOTHING`),
		r.EntityID, int64(r.ElectionID), voterKey(r.Voter), int64(r.CandidateID), r.BlockTimestamp)
	if err != nil {
		return fmt.Errorf("failed to record vote in election %d: %w", r.ElectionID, err)
	}
	return nil
}

func (s *EventStore) insertEnded(ctx context.Context, ex execer, r models.ElectionEndedRecord) error {
	_, err := ex.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO election_ended (entity_id, election_id, winner, total_votes, winner_vote_count, block_timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_id) DO NOTHING`),
		r.EntityID, int64(r.ElectionID), r.Winner, int64(r.TotalVotes), int64(r.WinnerVoteCount), r.BlockTimestamp)
	if err != nil {
		return fmt.Errorf("failed to record result of election %d: %w", r.ElectionID, err)
	}
	return nil
}

// RecordElectionCreated stores an ElectionCreated event. Replays are ignored.
func (s *EventStore) RecordElectionCreated(ctx context.Context, r models.ElectionCreatedRecord) error {
	return s.insertCreated(ctx, s.db, r)
}

func (s *EventStore) RecordCandidateCreated(ctx context.Context, r models.CandidateCreatedRecord) error {
	return s.insertCandidate(ctx, s.db, r)
}

func (s *EventStore) RecordVote(ctx context.Context, r models.VoteRecord) error {
	return s.insertVote(ctx, s.db, r)
}

func (s *EventStore) RecordElectionEnded(ctx context.Context, r models.ElectionEndedRecord) error {
	return s.insertEnded(ctx, s.db, r)
}

// RecordElection stores every record of one election in a transaction.
func (s *EventStore) RecordElection(ctx context.Context, recs *models.ElectionRecords) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range recs.Created {
		if err := s.insertCreated(ctx, tx, r); err != nil {
			return err
		}
	}
	for _, r := range recs.Candidates {
		if err := s.insertCandidate(ctx, tx, r); err != nil {
			return err
		}
	}
	for _, r := range recs.Votes {
		if err := s.insertVote(ctx, tx, r); err != nil {
			return err
		}
	}
	for _, r := range recs.Ended {
		if err := s.insertEnded(ctx, tx, r); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const createdColumns = `entity_id, election_id, creator, name, description, image, deadline, block_timestamp`

func scanCreated(rows *sql.Rows) (models.ElectionCreatedRecord, error) {
	var (
		r       models.ElectionCreatedRecord
		id      int64
		creator string
	)
	err := rows.Scan(&r.EntityID, &id, &creator, &r.Name, &r.Description, &r.Image, &r.Deadline, &r.BlockTimestamp)
	r.ElectionID = uint64(id)
	r.Creator = common.HexToAddress(creator)
	return r, err
}

// ElectionsCreated lists elections newest first, at most first rows.
func (s *EventStore) ElectionsCreated(ctx context.Context, first int) ([]models.ElectionCreatedRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT `+createdColumns+`
		FROM election_created
		ORDER BY block_timestamp DESC, election_id DESC
		LIMIT ?`), first)
	if err != nil {
		return nil, fmt.Errorf("failed to query elections: %w", err)
	}
	defer rows.Close()

	out := []models.ElectionCreatedRecord{}
	for rows.Next() {
		r, err := scanCreated(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating elections: %w", err)
	}
	return out, nil
}

// ElectionRecords returns every record stored for one election.
func (s *EventStore) ElectionRecords(ctx context.Context, electionID uint64) (*models.ElectionRecords, error) {
	id := int64(electionID)
	recs := &models.ElectionRecords{}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT `+createdColumns+` FROM election_created WHERE election_id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query election %d: %w", electionID, err)
	}
	for rows.Next() {
		r, err := scanCreated(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		recs.Created = append(recs.Created, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating election: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT entity_id, candidate_id, name, description
		FROM candidate_created WHERE election_id = ? ORDER BY candidate_id`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	for rows.Next() {
		var (
			c   models.CandidateCreatedRecord
			cid int64
		)
		if err := rows.Scan(&c.EntityID, &cid, &c.Name, &c.Description); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		c.ElectionID = electionID
		c.CandidateID = uint64(cid)
		recs.Candidates = append(recs.Candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	votes, err := s.queryVotes(ctx, `
		SELECT entity_id, election_id, voter_address, candidate_id, block_timestamp
		FROM vote_submitted WHERE election_id = ?`, id)
	if err != nil {
		return nil, err
	}
	recs.Votes = votes

	rows, err = s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT entity_id, winner, total_votes, winner_vote_count, block_timestamp
		FROM election_ended WHERE election_id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			e            models.ElectionEndedRecord
			total, count int64
		)
		if err := rows.Scan(&e.EntityID, &e.Winner, &total, &count, &e.BlockTimestamp); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		e.ElectionID = electionID
		e.TotalVotes = uint64(total)
		e.WinnerVoteCount = uint64(count)
		recs.Ended = append(recs.Ended, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return recs, nil
}

// VotesByVoter lists every vote cast by voter.
func (s *EventStore) VotesByVoter(ctx context.Context, voter common.Address) ([]models.VoteRecord, error) {
	return s.queryVotes(ctx, `
		SELECT entity_id, election_id, voter_address, candidate_id, block_timestamp
		FROM vote_submitted WHERE voter_address = ?
		ORDER BY block_timestamp`, voterKey(voter))
}

// RecentVotes lists the newest votes of one election.
func (s *EventStore) RecentVotes(ctx context.Context, electionID uint64, first int) ([]models.VoteRecord, error) {
	return s.queryVotes(ctx, `
		SELECT entity_id, election_id, voter_address, candidate_id, block_timestamp
		FROM vote_submitted WHERE election_id = ?
		ORDER BY block_timestamp DESC, entity_id DESC
		LIMIT ?`, int64(electionID), first)
}

func (s *EventStore) queryVotes(ctx context.Context, query string, args ...any) ([]models.VoteRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	out := []models.VoteRecord{}
	for rows.Next() {
		var (
			v        models.VoteRecord
			eid, cid int64
			voter    string
		)
		if err := rows.Scan(&v.EntityID, &eid, &voter, &cid, &v.BlockTimestamp); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		v.ElectionID = uint64(eid)
		v.CandidateID = uint64(cid)
		v.Voter = common.HexToAddress(voter)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return out, nil
}
