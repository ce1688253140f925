package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-farm/pkg/loggers"
)

// ERC20 is the bound staked token contract.
type ERC20 struct {
	address  common.Address
	contract *bind.BoundContract
	signer   OptsProvider
	logger   logrus.FieldLogger
}

func NewERC20(address common.Address, backend bind.ContractBackend, signer OptsProvider) (*ERC20, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse erc20 abi")
	}
	return &ERC20{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		signer:   signer,
		logger:   loggers.Logger(loggers.Chain),
	}, nil
}

func (e *ERC20) Address() common.Address {
	return e.address
}

func (e *ERC20) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out []any
	if err := e.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner); err != nil {
		return nil, errors.Wrapf(ErrTransport, "balanceOf: %v", err)
	}
	return unpackBig(out)
}

func (e *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var out []any
	if err := e.contract.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, spender); err != nil {
		return nil, errors.Wrapf(ErrTransport, "allowance: %v", err)
	}
	return unpackBig(out)
}

func (e *ERC20) Decimals(ctx context.Context) (uint8, error) {
	var out []any
	if err := e.contract.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, errors.Wrapf(ErrTransport, "decimals: %v", err)
	}
	if len(out) == 0 {
		return 0, ErrBadResult
	}
	v, ok := out[0].(uint8)
	if !ok {
		return 0, ErrBadResult
	}
	return v, nil
}

func (e *ERC20) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*ethtypes.Transaction, error) {
	if e.signer == nil {
		return nil, ErrNoSigner
	}
	opts, err := e.signer.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := e.contract.Transact(opts, "approve", spender, amount)
	if err != nil {
		return nil, errors.Wrap(err, "transact approve")
	}
	e.logger.WithFields(logrus.Fields{"spender": spender.Hex(), "hash": tx.Hash().Hex()}).Info("submitted approve")
	return tx, nil
}
