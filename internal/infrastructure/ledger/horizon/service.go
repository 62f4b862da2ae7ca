package horizonledger

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/protocols/horizon/operations"

	"github.com/lumenvault/lumenvault/internal/core/ports"
)

const paymentPageLimit = 50

type service struct {
	client horizonclient.ClientInterface
	log    func(format string, a ...interface{})
}

// NewService returns a ledger service backed by the horizon API server
// reachable at the given URL.
func NewService(horizonURL string, requestTimeout time.Duration) ports.LedgerService {
	client := &horizonclient.Client{
		HorizonURL: horizonURL,
		HTTP:       &http.Client{Timeout: requestTimeout},
	}
	return NewServiceWithClient(client)
}

// NewServiceWithClient returns a ledger service backed by the given horizon
// client. Meant for testing with a mocked client.
func NewServiceWithClient(client horizonclient.ClientInterface) ports.LedgerService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("ledger service: %s", format)
		logrus.Debugf(format, a...)
	}
	return &service{client, logFn}
}

func (s *service) GetAccount(
	ctx context.Context, address string,
) (*ports.AccountState, error) {
	details, err := s.client.AccountDetail(horizonclient.AccountRequest{
		AccountID: address,
	})
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			return nil, ports.ErrAccountNotFound
		}
		return nil, err
	}

	sequence, err := details.GetSequenceNumber()
	if err != nil {
		return nil, fmt.Errorf("invalid sequence number: %w", err)
	}

	signers := make([]ports.SignerState, 0, len(details.Signers))
	for _, signer := range details.Signers {
		signers = append(signers, ports.SignerState{
			Key:    signer.Key,
			Weight: signer.Weight,
		})
	}

	balances := make([]ports.Balance, 0, len(details.Balances))
	for _, balance := range details.Balances {
		balances = append(balances, ports.Balance{
			Asset:  assetString(balance.Type, balance.Code, balance.Issuer),
			Amount: balance.Balance,
		})
	}

	return &ports.AccountState{
		Sequence: sequence,
		Signers:  signers,
		Balances: balances,
	}, nil
}

func (s *service) SubmitEnvelope(
	ctx context.Context, envelopeXDR string,
) (*ports.SubmitResult, error) {
	resp, err := s.client.SubmitTransactionXDR(envelopeXDR)
	if err != nil {
		if herr := horizonclient.GetError(err); herr != nil {
			return nil, submitError(herr)
		}
		return nil, err
	}

	s.log("envelope included in ledger %d with hash %s", resp.Ledger, resp.Hash)

	return &ports.SubmitResult{
		TxHash: resp.Hash,
		Ledger: resp.Ledger,
	}, nil
}

func (s *service) GetPaymentHistory(
	ctx context.Context, address string,
) ([]ports.Payment, error) {
	page, err := s.client.Payments(horizonclient.OperationRequest{
		ForAccount: address,
		Order:      horizonclient.OrderDesc,
		Limit:      paymentPageLimit,
	})
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			return nil, ports.ErrAccountNotFound
		}
		return nil, err
	}

	payments := make([]ports.Payment, 0, len(page.Embedded.Records))
	for _, record := range page.Embedded.Records {
		op, ok := record.(operations.Payment)
		if !ok {
			continue
		}
		payments = append(payments, ports.Payment{
			ID:        op.ID,
			From:      op.From,
			To:        op.To,
			Asset:     assetString(op.Asset.Type, op.Asset.Code, op.Asset.Issuer),
			Amount:    op.Amount,
			CreatedAt: op.LedgerCloseTime,
		})
	}
	return payments, nil
}

// submitError maps an horizon rejection to the structured error consumed by
// the engine, surfacing the network result codes verbatim.
func submitError(herr *horizonclient.Error) *ports.SubmitError {
	submitErr := &ports.SubmitError{TxCode: "tx_failed"}
	if codes, err := herr.ResultCodes(); err == nil {
		submitErr.TxCode = codes.TransactionCode
		submitErr.OpCodes = codes.OperationCodes
	}
	if resultXDR, err := herr.ResultString(); err == nil {
		submitErr.ResultXDR = resultXDR
	}
	return submitErr
}

func assetString(assetType, code, issuer string) string {
	if assetType == "native" || len(code) == 0 {
		return "native"
	}
	return fmt.Sprintf("%s:%s", code, issuer)
}
