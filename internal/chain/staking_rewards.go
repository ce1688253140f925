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

// StakingRewards is the bound staking program contract.
type StakingRewards struct {
	address  common.Address
	contract *bind.BoundContract
	signer   OptsProvider
	logger   logrus.FieldLogger
}

func NewStakingRewards(address common.Address, backend bind.ContractBackend, signer OptsProvider) (*StakingRewards, error) {
	parsed, err := abi.JSON(strings.NewReader(stakingRewardsABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse staking rewards abi")
	}
	return &StakingRewards{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		signer:   signer,
		logger:   loggers.Logger(loggers.Chain),
	}, nil
}

func (s *StakingRewards) Address() common.Address {
	return s.address
}

func (s *StakingRewards) StakeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return s.callBig(ctx, "balanceOf", account)
}

func (s *StakingRewards) TotalStaked(ctx context.Context) (*big.Int, error) {
	return s.callBig(ctx, "totalSupply")
}

func (s *StakingRewards) Earned(ctx context.Context, account common.Address) (*big.Int, error) {
	return s.callBig(ctx, "earned", account)
}

func (s *StakingRewards) RewardRate(ctx context.Context) (*big.Int, error) {
	return s.callBig(ctx, "rewardRate")
}

// PeriodFinish returns the program expiry as unix seconds.
func (s *StakingRewards) PeriodFinish(ctx context.Context) (int64, error) {
	v, err := s.callBig(ctx, "periodFinish")
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}

func (s *StakingRewards) Stake(ctx context.Context, amount *big.Int) (*ethtypes.Transaction, error) {
	return s.transact(ctx, "stake", amount)
}

func (s *StakingRewards) Withdraw(ctx context.Context, amount *big.Int) (*ethtypes.Transaction, error) {
	return s.transact(ctx, "withdraw", amount)
}

func (s *StakingRewards) GetReward(ctx context.Context) (*ethtypes.Transaction, error) {
	return s.transact(ctx, "getReward")
}

// Exit withdraws the full stake and claims pending rewards in a single call.
func (s *StakingRewards) Exit(ctx context.Context) (*ethtypes.Transaction, error) {
	return s.transact(ctx, "exit")
}

func (s *StakingRewards) callBig(ctx context.Context, fn string, args ...any) (*big.Int, error) {
	var out []any
	if err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, fn, args...); err != nil {
		return nil, errors.Wrapf(ErrTransport, "%s: %v", fn, err)
	}
	return unpackBig(out)
}

func (s *StakingRewards) transact(ctx context.Context, fn string, args ...any) (*ethtypes.Transaction, error) {
	if s.signer == nil {
		return nil, ErrNoSigner
	}
	opts, err := s.signer.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := s.contract.Transact(opts, fn, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "transact %s", fn)
	}
	s.logger.WithFields(logrus.Fields{"fn": fn, "hash": tx.Hash().Hex()}).Info("submitted staking call")
	return tx, nil
}
