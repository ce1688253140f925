// Package position maintains the best-effort live view of a staking position.
// Every snapshot field is polled independently; a failed read keeps the
// previous value and a change of the observed identity abandons whatever is
// still in flight for the old one.
package position

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/axiomesh/axiom-farm/pkg/events"
	"github.com/axiomesh/axiom-farm/pkg/loggers"
	"github.com/axiomesh/axiom-farm/pkg/maybe"
	"github.com/axiomesh/axiom-farm/pkg/types"
)

type StakingSource interface {
	StakeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	TotalStaked(ctx context.Context) (*big.Int, error)
	Earned(ctx context.Context, account common.Address) (*big.Int, error)
	RewardRate(ctx context.Context) (*big.Int, error)
	PeriodFinish(ctx context.Context) (int64, error)
}

type TokenSource interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
}

type Valuator interface {
	CalculateTotalAmountForLP(ctx context.Context, lpAmount *big.Int) (*big.Int, error)
}

type PriceSource interface {
	PriceByTokenSymbol(ctx context.Context, symbol string) maybe.Value[*big.Int]
}

var pollFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "farm",
	Name:      "poll_failures_total",
	Help:      "Failed snapshot field reads, by field.",
}, []string{"field"})

type Reader struct {
	staking  StakingSource
	token    TokenSource
	valuator Valuator
	prices   PriceSource

	stakingToken types.Token
	rewardToken  types.Token

	interval     time.Duration
	slowInterval time.Duration

	mu       sync.RWMutex
	identity types.Identity
	snapshot types.StakingSnapshot
	quotes   types.Quotes
	parent   context.Context
	cancel   context.CancelFunc

	// epoch guards against stale responses: a read issued under an old
	// identity carries the old epoch and its result is dropped on apply
	epoch *atomic.Uint64
	wg    sync.WaitGroup

	feed   event.Feed
	logger logrus.FieldLogger
}

func NewReader(staking StakingSource, token TokenSource, valuator Valuator, prices PriceSource,
	stakingToken, rewardToken types.Token, interval, slowInterval time.Duration) *Reader {
	return &Reader{
		staking:      staking,
		token:        token,
		valuator:     valuator,
		prices:       prices,
		stakingToken: stakingToken,
		rewardToken:  rewardToken,
		interval:     interval,
		slowInterval: slowInterval,
		epoch:        atomic.NewUint64(0),
		logger:       loggers.Logger(loggers.Position),
	}
}

// Start begins polling for the given identity. The context bounds the
// lifetime of all pollers; Stop (or cancelling it) tears them down.
func (r *Reader) Start(ctx context.Context, id types.Identity) {
	r.mu.Lock()
	r.parent = ctx
	r.mu.Unlock()
	r.SetIdentity(id)
}

// SetIdentity switches the observed account/contract pair. All outstanding
// polls for the previous identity are cancelled and whatever they still
// deliver is discarded; the snapshot resets to fully unknown.
func (r *Reader) SetIdentity(id types.Identity) {
	r.mu.Lock()
	if r.cancel != nil && id == r.identity {
		r.mu.Unlock()
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	parent := r.parent
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	r.identity = id
	r.cancel = cancel
	r.snapshot = types.StakingSnapshot{}
	r.quotes = types.Quotes{}
	epoch := r.epoch.Inc()
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"account":  id.Account.Hex(),
		"contract": id.Contract.Hex(),
	}).Info("position subscription switched")
	r.startPollers(ctx, id, epoch)
}

func (r *Reader) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Snapshot returns a copy of the current best-effort snapshot.
func (r *Reader) Snapshot() types.StakingSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

func (r *Reader) Quotes() types.Quotes {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.quotes
}

func (r *Reader) Identity() types.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.identity
}

// SubscribeSnapshot delivers an event for every applied field update.
func (r *Reader) SubscribeSnapshot(ch chan<- events.SnapshotEvent) event.Subscription {
	return r.feed.Subscribe(ch)
}

func (r *Reader) startPollers(ctx context.Context, id types.Identity, epoch uint64) {
	fast := map[string]func(context.Context) error{
		"stake_balance": func(ctx context.Context) error { return r.readStakeBalance(ctx, id, epoch) },
		"total_staked":  func(ctx context.Context) error { return r.readTotalStaked(ctx, epoch) },
		"earned":        func(ctx context.Context) error { return r.readEarned(ctx, id, epoch) },
		"reward_rate":   func(ctx context.Context) error { return r.readRewardRate(ctx, epoch) },
		"allowance":     func(ctx context.Context) error { return r.readAllowance(ctx, id, epoch) },
		"token_balance": func(ctx context.Context) error { return r.readTokenBalance(ctx, id, epoch) },
		"valuations":    func(ctx context.Context) error { return r.readValuations(ctx, epoch) },
	}
	slow := map[string]func(context.Context) error{
		"period_finish": func(ctx context.Context) error { return r.readPeriodFinish(ctx, epoch) },
		"quotes":        func(ctx context.Context) error { return r.readQuotes(ctx, epoch) },
	}
	for field, read := range fast {
		r.wg.Add(1)
		go r.pollLoop(ctx, field, r.interval, read)
	}
	for field, read := range slow {
		r.wg.Add(1)
		go r.pollLoop(ctx, field, r.slowInterval, read)
	}
}

// pollLoop reads once, then on every tick. The next read for a field starts
// only after the previous one settled, so at most one request per field is
// ever in flight against the source.
func (r *Reader) pollLoop(ctx context.Context, field string, interval time.Duration, read func(context.Context) error) {
	defer r.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := read(ctx); err != nil && ctx.Err() == nil {
			pollFailures.WithLabelValues(field).Inc()
			r.logger.WithError(err).Warnf("poll %s failed, keeping previous value", field)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// apply mutates the snapshot and publishes, unless the identity changed since
// the read was issued.
func (r *Reader) apply(epoch uint64, field string, mut func(s *types.StakingSnapshot)) {
	r.mu.Lock()
	if r.epoch.Load() != epoch {
		r.mu.Unlock()
		return
	}
	mut(&r.snapshot)
	id := r.identity
	snap := r.snapshot
	r.mu.Unlock()
	r.feed.Send(events.SnapshotEvent{Identity: id, Field: field, Snapshot: snap})
}

func (r *Reader) readStakeBalance(ctx context.Context, id types.Identity, epoch uint64) error {
	v, err := r.staking.StakeBalance(ctx, id.Account)
	if err != nil {
		return err
	}
	r.apply(epoch, "stake_balance", func(s *types.StakingSnapshot) { s.StakeBalance = maybe.Known(v) })
	return nil
}

func (r *Reader) readTotalStaked(ctx context.Context, epoch uint64) error {
	v, err := r.staking.TotalStaked(ctx)
	if err != nil {
		return err
	}
	r.apply(epoch, "total_staked", func(s *types.StakingSnapshot) { s.TotalStaked = maybe.Known(v) })
	return nil
}

func (r *Reader) readEarned(ctx context.Context, id types.Identity, epoch uint64) error {
	v, err := r.staking.Earned(ctx, id.Account)
	if err != nil {
		return err
	}
	r.apply(epoch, "earned", func(s *types.StakingSnapshot) { s.Earned = maybe.Known(v) })
	return nil
}

func (r *Reader) readRewardRate(ctx context.Context, epoch uint64) error {
	v, err := r.staking.RewardRate(ctx)
	if err != nil {
		return err
	}
	r.apply(epoch, "reward_rate", func(s *types.StakingSnapshot) { s.RewardRate = maybe.Known(v) })
	return nil
}

func (r *Reader) readPeriodFinish(ctx context.Context, epoch uint64) error {
	v, err := r.staking.PeriodFinish(ctx)
	if err != nil {
		return err
	}
	r.apply(epoch, "period_finish", func(s *types.StakingSnapshot) { s.PeriodFinish = maybe.Known(v) })
	return nil
}

func (r *Reader) readAllowance(ctx context.Context, id types.Identity, epoch uint64) error {
	v, err := r.token.Allowance(ctx, id.Account, id.Contract)
	if err != nil {
		return err
	}
	r.apply(epoch, "allowance", func(s *types.StakingSnapshot) { s.Allowance = maybe.Known(v) })
	return nil
}

func (r *Reader) readTokenBalance(ctx context.Context, id types.Identity, epoch uint64) error {
	v, err := r.token.BalanceOf(ctx, id.Account)
	if err != nil {
		return err
	}
	r.apply(epoch, "token_balance", func(s *types.StakingSnapshot) { s.TokenBalance = maybe.Known(v) })
	return nil
}

// readValuations values the currently known LP amounts through the AMM. It
// waits for the staked amounts to arrive first; there is nothing to value
// until they do.
func (r *Reader) readValuations(ctx context.Context, epoch uint64) error {
	r.mu.RLock()
	total, totalOK := r.snapshot.TotalStaked.Get()
	user, userOK := r.snapshot.StakeBalance.Get()
	r.mu.RUnlock()

	if totalOK {
		v, err := r.valuator.CalculateTotalAmountForLP(ctx, total)
		if err != nil {
			return err
		}
		r.apply(epoch, "total_staked_valuation", func(s *types.StakingSnapshot) {
			s.TotalStakedValuation = maybe.Known(v)
		})
	}
	if userOK {
		v, err := r.valuator.CalculateTotalAmountForLP(ctx, user)
		if err != nil {
			return err
		}
		r.apply(epoch, "user_stake_valuation", func(s *types.StakingSnapshot) {
			s.UserStakeValuation = maybe.Known(v)
		})
	}
	return nil
}

func (r *Reader) readQuotes(ctx context.Context, epoch uint64) error {
	staking := r.prices.PriceByTokenSymbol(ctx, r.stakingToken.Symbol)
	reward := r.prices.PriceByTokenSymbol(ctx, r.rewardToken.Symbol)

	r.mu.Lock()
	if r.epoch.Load() != epoch {
		r.mu.Unlock()
		return nil
	}
	r.quotes.StakingTokenUSD = retain(r.quotes.StakingTokenUSD, staking)
	r.quotes.RewardTokenUSD = retain(r.quotes.RewardTokenUSD, reward)
	id := r.identity
	snap := r.snapshot
	r.mu.Unlock()

	r.feed.Send(events.SnapshotEvent{Identity: id, Field: "quotes", Snapshot: snap})
	return nil
}

// retain keeps the previous known quote when the new fetch came back absent.
func retain(old, new maybe.Value[*big.Int]) maybe.Value[*big.Int] {
	if !new.IsKnown() && old.IsKnown() {
		return old
	}
	return new
}
