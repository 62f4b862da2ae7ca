package postgresdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/lumenvault/lumenvault/internal/core/domain"
)

type proposalRepositoryPg struct {
	pgxPool          *pgxpool.Pool
	chLock           *sync.Mutex
	chEvents         chan domain.ProposalEvent
	externalChEvents chan domain.ProposalEvent
}

func NewProposalRepositoryPgImpl(pgxPool *pgxpool.Pool) domain.ProposalRepository {
	return &proposalRepositoryPg{
		pgxPool:          pgxPool,
		chLock:           &sync.Mutex{},
		chEvents:         make(chan domain.ProposalEvent),
		externalChEvents: make(chan domain.ProposalEvent),
	}
}

func (r *proposalRepositoryPg) AddProposal(
	ctx context.Context, proposal *domain.Proposal,
) error {
	tx, err := r.pgxPool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx,
		"INSERT INTO proposal (id, fk_account_id, kind, envelope_xdr, "+
			"envelope_hash, status, created_at, executed_at, result_tx_hash) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		proposal.ID, proposal.AccountID, int(proposal.Kind),
		proposal.EnvelopeXDR, proposal.EnvelopeHash, int(proposal.Status),
		proposal.CreatedAt, proposal.ExecutedAt, proposal.ResultTxHash,
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("proposal %s already existing", proposal.ID)
		}
		return err
	}

	if err := insertApprovals(ctx, tx, proposal.ID, proposal.Approvals); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	go r.publishEvent(domain.ProposalEvent{
		EventType: domain.ProposalCreated,
		Proposal:  proposal,
	})

	return nil
}

func (r *proposalRepositoryPg) GetProposal(
	ctx context.Context, id string,
) (*domain.Proposal, error) {
	row := r.pgxPool.QueryRow(
		ctx, selectProposalQuery+" WHERE id = $1", id,
	)
	proposal, err := scanProposal(row)
	if err != nil {
		return nil, err
	}

	approvals, err := getApprovals(ctx, r.pgxPool, id)
	if err != nil {
		return nil, err
	}
	proposal.Approvals = approvals

	return proposal, nil
}

func (r *proposalRepositoryPg) GetProposalsForAccount(
	ctx context.Context, accountID string,
) ([]*domain.Proposal, error) {
	rows, err := r.pgxPool.Query(
		ctx,
		selectProposalQuery+" WHERE fk_account_id = $1 ORDER BY created_at",
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	proposals := make([]*domain.Proposal, 0)
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, proposal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, proposal := range proposals {
		approvals, err := getApprovals(ctx, r.pgxPool, proposal.ID)
		if err != nil {
			return nil, err
		}
		proposal.Approvals = approvals
	}

	return proposals, nil
}

// UpdateProposal runs updateFn against the proposal row locked with
// SELECT ... FOR UPDATE, so that the check-then-insert on the approvals set
// of two concurrent approvers cannot interleave.
func (r *proposalRepositoryPg) UpdateProposal(
	ctx context.Context, id string,
	updateFn func(proposal *domain.Proposal) (*domain.Proposal, error),
) error {
	tx, err := r.pgxPool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(
		ctx, selectProposalQuery+" WHERE id = $1 FOR UPDATE", id,
	)
	proposal, err := scanProposal(row)
	if err != nil {
		return err
	}

	approvals, err := getApprovals(ctx, tx, id)
	if err != nil {
		return err
	}
	proposal.Approvals = approvals

	prevStatus := proposal.Status
	prevApprovals := proposal.CountApprovals()

	updatedProposal, err := updateFn(proposal)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(
		ctx,
		"UPDATE proposal SET status = $1, executed_at = $2, "+
			"result_tx_hash = $3 WHERE id = $4",
		int(updatedProposal.Status), updatedProposal.ExecutedAt,
		updatedProposal.ResultTxHash, id,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(
		ctx, "DELETE FROM proposal_approval WHERE fk_proposal_id = $1", id,
	); err != nil {
		return err
	}
	if err := insertApprovals(ctx, tx, id, updatedProposal.Approvals); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	for _, event := range proposalEventsForChange(
		prevStatus, prevApprovals, updatedProposal,
	) {
		go r.publishEvent(event)
	}

	return nil
}

func (r *proposalRepositoryPg) GetEventChannel() chan domain.ProposalEvent {
	return r.externalChEvents
}

const selectProposalQuery = "SELECT id, fk_account_id, kind, envelope_xdr, " +
	"envelope_hash, status, created_at, executed_at, result_tx_hash " +
	"FROM proposal"

func scanProposal(row pgx.Row) (*domain.Proposal, error) {
	var proposal domain.Proposal
	var kind, status int
	var executedAt *time.Time
	if err := row.Scan(
		&proposal.ID, &proposal.AccountID, &kind, &proposal.EnvelopeXDR,
		&proposal.EnvelopeHash, &status, &proposal.CreatedAt, &executedAt,
		&proposal.ResultTxHash,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrProposalNotFound
		}
		return nil, err
	}
	proposal.Kind = domain.ProposalKind(kind)
	proposal.Status = domain.ProposalStatus(status)
	proposal.ExecutedAt = executedAt
	return &proposal, nil
}

func getApprovals(
	ctx context.Context, querier rowQuerier, proposalID string,
) (map[string][]byte, error) {
	rows, err := querier.Query(
		ctx,
		"SELECT signer_key, signature FROM proposal_approval "+
			"WHERE fk_proposal_id = $1",
		proposalID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	approvals := make(map[string][]byte)
	for rows.Next() {
		var signerKey string
		var signature []byte
		if err := rows.Scan(&signerKey, &signature); err != nil {
			return nil, err
		}
		approvals[signerKey] = signature
	}
	return approvals, rows.Err()
}

func insertApprovals(
	ctx context.Context, tx pgx.Tx, proposalID string,
	approvals map[string][]byte,
) error {
	for signerKey, signature := range approvals {
		if _, err := tx.Exec(
			ctx,
			"INSERT INTO proposal_approval "+
				"(signer_key, signature, fk_proposal_id) VALUES ($1, $2, $3)",
			signerKey, signature, proposalID,
		); err != nil {
			return err
		}
	}
	return nil
}

func proposalEventsForChange(
	prevStatus domain.ProposalStatus, prevApprovals int,
	proposal *domain.Proposal,
) []domain.ProposalEvent {
	events := make([]domain.ProposalEvent, 0, 2)
	if proposal.CountApprovals() > prevApprovals {
		events = append(events, domain.ProposalEvent{
			EventType: domain.ProposalApprovalAdded,
			Proposal:  proposal,
		})
	}
	if proposal.Status != prevStatus {
		switch proposal.Status {
		case domain.ProposalApproved:
			events = append(events, domain.ProposalEvent{
				EventType: domain.ProposalThresholdReached,
				Proposal:  proposal,
			})
		case domain.ProposalRejected:
			events = append(events, domain.ProposalEvent{
				EventType: domain.ProposalRejectedEvent,
				Proposal:  proposal,
			})
		case domain.ProposalExecuted:
			events = append(events, domain.ProposalEvent{
				EventType: domain.ProposalExecutedEvent,
				Proposal:  proposal,
			})
		}
	}
	return events
}

func (r *proposalRepositoryPg) publishEvent(event domain.ProposalEvent) {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	r.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *proposalRepositoryPg) close() {
	close(r.chEvents)
	close(r.externalChEvents)
}
