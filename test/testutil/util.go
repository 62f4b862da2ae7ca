package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/internal/core/ports"
)

var (
	AccountHandlerFactory = func(t *testing.T, repoType string) ports.AccountEventHandler {
		return func(event domain.AccountEvent) {
			t.Logf(
				"received event from %s repo: {EventType: %s, AccountID: %s, SignerKey: %s}\n",
				repoType, event.EventType, event.AccountID, event.SignerKey,
			)
		}
	}

	ProposalHandlerFactory = func(t *testing.T, repoType string) ports.ProposalEventHandler {
		return func(event domain.ProposalEvent) {
			t.Logf(
				"received event from %s repo: {EventType: %s, ProposalID: %s, Status: %s}\n",
				repoType, event.EventType, event.Proposal.ID, event.Proposal.Status,
			)
		}
	}
)

// RegisterEventHandlers registers logging handlers for every account and
// proposal event type on the given repo manager.
func RegisterEventHandlers(
	t *testing.T, repoType string, rm ports.RepoManager,
) {
	accountHandler := AccountHandlerFactory(t, repoType)
	for _, eventType := range []domain.AccountEventType{
		domain.AccountCreated,
		domain.AccountSignerAdded,
		domain.AccountSignerRemoved,
	} {
		rm.RegisterHandlerForAccountEvent(eventType, accountHandler)
	}

	proposalHandler := ProposalHandlerFactory(t, repoType)
	for _, eventType := range []domain.ProposalEventType{
		domain.ProposalCreated,
		domain.ProposalApprovalAdded,
		domain.ProposalThresholdReached,
		domain.ProposalRejectedEvent,
		domain.ProposalExecutedEvent,
	} {
		rm.RegisterHandlerForProposalEvent(eventType, proposalHandler)
	}
}

func RandomBytes(n int) []byte {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return buf
}

func RandomHex(n int) string {
	return hex.EncodeToString(RandomBytes(n))
}
