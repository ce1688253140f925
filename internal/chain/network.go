package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-farm/pkg/loggers"
)

// NetworkConnector validates that the connected endpoint serves the target
// network before anything is submitted to it.
type NetworkConnector struct {
	client *ethclient.Client
	logger logrus.FieldLogger
}

func NewNetworkConnector(client *ethclient.Client) *NetworkConnector {
	return &NetworkConnector{
		client: client,
		logger: loggers.Logger(loggers.Chain),
	}
}

func (n *NetworkConnector) CheckConnectedNetworkID(ctx context.Context, want uint64) (bool, error) {
	id, err := n.client.ChainID(ctx)
	if err != nil {
		return false, errors.Wrapf(ErrTransport, "chain id: %v", err)
	}
	if id.Uint64() != want {
		n.logger.Warnf("connected to chain %d, want %d", id.Uint64(), want)
		return false, nil
	}
	return true, nil
}
