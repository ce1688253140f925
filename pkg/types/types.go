package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/axiomesh/axiom-farm/pkg/maybe"
)

// Token is a resolved token identity on the target network. Immutable once
// loaded from config.
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
}

// Identity keys one subscription of the position reader: which account is
// observed against which staking contract. Changing either abandons all
// in-flight reads for the previous identity.
type Identity struct {
	Account  common.Address
	Contract common.Address
}

// StakingSnapshot is the current best-effort view of a staking position.
// Every field is fetched independently on its own cadence; none of them are
// guaranteed to be mutually consistent and each may be absent until its first
// successful read.
type StakingSnapshot struct {
	// staking contract views
	StakeBalance maybe.Value[*big.Int]
	TotalStaked  maybe.Value[*big.Int]
	Earned       maybe.Value[*big.Int]
	RewardRate   maybe.Value[*big.Int]
	PeriodFinish maybe.Value[int64] // unix seconds

	// token views against the staking contract as spender
	Allowance    maybe.Value[*big.Int]
	TokenBalance maybe.Value[*big.Int]

	// AMM valuations of the LP amounts, in underlying-asset units
	TotalStakedValuation maybe.Value[*big.Int]
	UserStakeValuation   maybe.Value[*big.Int]
}

// Quotes are USD prices scaled to fixedpoint.WorkingDecimals.
type Quotes struct {
	StakingTokenUSD maybe.Value[*big.Int]
	RewardTokenUSD  maybe.Value[*big.Int]
}

// DerivedMetrics are pure functions of a snapshot plus quotes. They are
// recomputed on every change and never persisted. Absent means "not yet
// computable", which is different from a known zero.
type DerivedMetrics struct {
	RewardsExpired     maybe.Value[bool]
	TotalRewardsPerDay maybe.Value[*big.Int]
	UserRewardsPerDay  maybe.Value[*big.Int]
	APR                maybe.Value[*big.Int] // working-precision fraction, 10^18 == 100%
	StakedPositionUSD  maybe.Value[*big.Int]
}

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// TxRecord is a tracked on-chain action keyed by hash.
type TxRecord struct {
	Hash        common.Hash
	Kind        string
	From        common.Address
	Amount      *big.Int
	CreatedAt   time.Time
	Status      TxStatus
	BlockNumber uint64
}
