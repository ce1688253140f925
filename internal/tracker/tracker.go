// Package tracker keeps the registry of submitted transactions and watches
// them to a receipt.
package tracker

import (
	"context"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/strategy"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-farm/pkg/loggers"
	"github.com/axiomesh/axiom-farm/pkg/types"
)

const receiptAttempts = 120

var ErrReceiptTimeout = errors.New("tracker: no receipt before giving up")

// ReceiptBackend is the read side of the transaction pool, typically an
// ethclient.Client.
type ReceiptBackend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

type Tracker struct {
	backend      ReceiptBackend
	pollInterval time.Duration
	records      cmap.ConcurrentMap[string, *types.TxRecord]
	logger       logrus.FieldLogger
}

func New(backend ReceiptBackend, pollInterval time.Duration) *Tracker {
	return &Tracker{
		backend:      backend,
		pollInterval: pollInterval,
		records:      cmap.New[*types.TxRecord](),
		logger:       loggers.Logger(loggers.Tracker),
	}
}

func (t *Tracker) Add(rec *types.TxRecord) {
	t.records.Set(rec.Hash.Hex(), rec)
	t.logger.WithFields(logrus.Fields{"hash": rec.Hash.Hex(), "kind": rec.Kind}).Info("tracking transaction")
}

func (t *Tracker) Get(hash common.Hash) (*types.TxRecord, bool) {
	return t.records.Get(hash.Hex())
}

func (t *Tracker) List() []*types.TxRecord {
	out := make([]*types.TxRecord, 0, t.records.Count())
	for _, rec := range t.records.Items() {
		out = append(out, rec)
	}
	return out
}

// WaitForReceipt polls until the transaction is mined, then writes the
// terminal status back to its record.
func (t *Tracker) WaitForReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	var receipt *ethtypes.Receipt
	err := retry.Retry(func(attempt uint) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := t.backend.TransactionReceipt(ctx, hash)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	}, strategy.Limit(receiptAttempts), strategy.Wait(t.pollInterval))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(ErrReceiptTimeout, "%s: %v", hash.Hex(), err)
	}

	if rec, ok := t.Get(hash); ok {
		if receipt.Status == ethtypes.ReceiptStatusSuccessful {
			rec.Status = types.TxConfirmed
		} else {
			rec.Status = types.TxFailed
		}
		rec.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return receipt, nil
}
