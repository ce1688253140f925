package yield

import (
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-farm/pkg/fixedpoint"
	"github.com/axiomesh/axiom-farm/pkg/loggers"
	"github.com/axiomesh/axiom-farm/pkg/maybe"
	"github.com/axiomesh/axiom-farm/pkg/types"
)

const (
	secondsPerDay = 86400
	daysPerYear   = 365
)

// Calculator derives yield metrics from a snapshot plus price quotes. Every
// output is a pure function of its inputs: an absent input yields an absent
// output, never a fabricated zero, and a division whose denominator is zero
// yields an undefined metric rather than a crash.
type Calculator struct {
	stakingToken types.Token
	rewardToken  types.Token
	logger       logrus.FieldLogger
}

func NewCalculator(stakingToken, rewardToken types.Token) *Calculator {
	return &Calculator{
		stakingToken: stakingToken,
		rewardToken:  rewardToken,
		logger:       loggers.Logger(loggers.Yield),
	}
}

func (c *Calculator) Derive(now time.Time, snap types.StakingSnapshot, quotes types.Quotes) types.DerivedMetrics {
	m := types.DerivedMetrics{}
	m.RewardsExpired = c.rewardsExpired(now, snap)
	m.TotalRewardsPerDay = c.totalRewardsPerDay(m.RewardsExpired, snap)
	m.UserRewardsPerDay = c.userRewardsPerDay(m.RewardsExpired, m.TotalRewardsPerDay, snap)
	m.APR = c.apr(m.TotalRewardsPerDay, snap, quotes)
	m.StakedPositionUSD = c.stakedPositionUSD(snap, quotes)
	return m
}

// rewardsExpired is unknown until periodFinish has been fetched; downstream
// treats unknown as "do not assume active".
func (c *Calculator) rewardsExpired(now time.Time, snap types.StakingSnapshot) maybe.Value[bool] {
	finish, ok := snap.PeriodFinish.Get()
	if !ok {
		return maybe.Unknown[bool]()
	}
	return maybe.Known(now.Unix() > finish)
}

func (c *Calculator) totalRewardsPerDay(expired maybe.Value[bool], snap types.StakingSnapshot) maybe.Value[*big.Int] {
	exp, ok := expired.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}
	if exp {
		return maybe.Known(big.NewInt(0))
	}
	rate, ok := snap.RewardRate.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}
	return maybe.Known(new(big.Int).Mul(rate, big.NewInt(secondsPerDay)))
}

// userRewardsPerDay is the user's share of the daily emission. With nothing
// staked (either globally or by the user) the share is undefined, which is
// not the same thing as earning zero.
func (c *Calculator) userRewardsPerDay(expired maybe.Value[bool], totalPerDay maybe.Value[*big.Int], snap types.StakingSnapshot) maybe.Value[*big.Int] {
	exp, ok := expired.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}
	if exp {
		return maybe.Known(big.NewInt(0))
	}
	total, ok := totalPerDay.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}
	stake, ok := snap.StakeBalance.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}
	staked, ok := snap.TotalStaked.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}
	if staked.Sign() == 0 || stake.Sign() == 0 {
		return maybe.Unknown[*big.Int]()
	}
	v, err := fixedpoint.MulDiv(total, stake, staked)
	if err != nil {
		return maybe.Unknown[*big.Int]()
	}
	return maybe.Known(v)
}

// apr returns the annualized reward fraction at working precision, 10^18
// being 100%:
//
//	apr = totalRewardsPerDay * rewardUSD * 10^18 * 365 / (stakedValuation * stakingUSD)
//
// with every term rescaled to working precision before combining. A
// degenerate pool (valuation <= 0) yields zero.
func (c *Calculator) apr(totalPerDay maybe.Value[*big.Int], snap types.StakingSnapshot, quotes types.Quotes) maybe.Value[*big.Int] {
	total, ok := totalPerDay.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}
	valuation, ok := snap.TotalStakedValuation.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}
	rewardUSD, ok := quotes.RewardTokenUSD.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}
	stakingUSD, ok := quotes.StakingTokenUSD.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}

	val := fixedpoint.Rescale(valuation, c.stakingToken.Decimals, fixedpoint.WorkingDecimals)
	if val.Sign() <= 0 {
		return maybe.Known(big.NewInt(0))
	}
	den := new(big.Int).Mul(val, stakingUSD)
	if den.Sign() == 0 {
		return maybe.Unknown[*big.Int]()
	}

	num := fixedpoint.Rescale(total, c.rewardToken.Decimals, fixedpoint.WorkingDecimals)
	num.Mul(num, rewardUSD)
	num.Mul(num, big.NewInt(daysPerYear))
	num.Mul(num, fixedpoint.Pow10(fixedpoint.WorkingDecimals))
	return maybe.Known(num.Quo(num, den))
}

// stakedPositionUSD values the position: staked underlying at the staking
// token price plus pending rewards at the reward token price, shifted back
// down to working precision after the price multiplications.
func (c *Calculator) stakedPositionUSD(snap types.StakingSnapshot, quotes types.Quotes) maybe.Value[*big.Int] {
	userVal, ok := snap.UserStakeValuation.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}
	earned, ok := snap.Earned.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}
	stakingUSD, ok := quotes.StakingTokenUSD.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}
	rewardUSD, ok := quotes.RewardTokenUSD.Get()
	if !ok {
		return maybe.Unknown[*big.Int]()
	}

	staked := fixedpoint.Rescale(userVal, c.stakingToken.Decimals, fixedpoint.WorkingDecimals)
	staked.Mul(staked, stakingUSD)
	rewards := fixedpoint.Rescale(earned, c.rewardToken.Decimals, fixedpoint.WorkingDecimals)
	rewards.Mul(rewards, rewardUSD)

	sum := staked.Add(staked, rewards)
	return maybe.Known(fixedpoint.Rescale(sum, 2*fixedpoint.WorkingDecimals, fixedpoint.WorkingDecimals))
}
