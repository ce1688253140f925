// Package orchestrator sequences the on-chain actions that mutate a staking
// position: approve, stake, withdraw and claim. Each action kind runs one
// state machine; only one instance of a kind can be in flight, so repeated
// clicks cannot double-submit.
package orchestrator

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-farm/pkg/events"
	"github.com/axiomesh/axiom-farm/pkg/fixedpoint"
	"github.com/axiomesh/axiom-farm/pkg/loggers"
	"github.com/axiomesh/axiom-farm/pkg/maybe"
	"github.com/axiomesh/axiom-farm/pkg/types"
)

type Kind string

const (
	KindApprove  Kind = "approve"
	KindStake    Kind = "stake"
	KindWithdraw Kind = "withdraw"
	KindClaim    Kind = "claim"
)

const (
	StateIdle                 = "idle"
	StateNetworkCheck         = "network_check"
	StateAwaitingConfirmation = "awaiting_confirmation"
	StateSubmitted            = "submitted"
	StateConfirmed            = "confirmed"
	StateFailed               = "failed"
)

const (
	eventBegin     = "begin"
	eventNetworkOK = "network_ok"
	eventConfirm   = "confirm"
	eventSucceed   = "succeed"
	eventFail      = "fail"
	eventReset     = "reset"
)

// fullExitPercentage switches a withdrawal to the contract's exit() call,
// which withdraws everything and claims rewards atomically. Partial
// withdrawals do not auto-claim.
const fullExitPercentage = uint8(100)

var (
	ErrActionInFlight    = errors.New("orchestrator: action already in flight")
	ErrWrongNetwork      = errors.New("orchestrator: connected to wrong network")
	ErrReverted          = errors.New("orchestrator: execution reverted")
	ErrNoInputAmount     = errors.New("orchestrator: no input amount set")
	ErrUnknownStake      = errors.New("orchestrator: stake balance not known yet")
	ErrInvalidPercentage = errors.New("orchestrator: withdraw percentage must be 1-100")
)

// Confirmation is what the user is asked to approve before anything is
// signed.
type Confirmation struct {
	Kind       Kind
	Token      types.Token
	Amount     *big.Int
	Percentage uint8
}

type StakingActions interface {
	Stake(ctx context.Context, amount *big.Int) (*ethtypes.Transaction, error)
	Withdraw(ctx context.Context, amount *big.Int) (*ethtypes.Transaction, error)
	GetReward(ctx context.Context) (*ethtypes.Transaction, error)
	Exit(ctx context.Context) (*ethtypes.Transaction, error)
}

type TokenActions interface {
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (*ethtypes.Transaction, error)
}

type NetworkConnector interface {
	CheckConnectedNetworkID(ctx context.Context, want uint64) (bool, error)
}

// ConfirmationPrompt shows the pending action to the user. false means the
// user declined, which is not an error.
type ConfirmationPrompt interface {
	Show(ctx context.Context, conf Confirmation) (bool, error)
}

type TxTracker interface {
	Add(rec *types.TxRecord)
	WaitForReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
}

type Orchestrator struct {
	staking StakingActions
	token   TokenActions
	network NetworkConnector
	prompt  ConfirmationPrompt
	tracker TxTracker

	chainID      uint64
	spender      common.Address
	from         common.Address
	stakingToken types.Token

	machines map[Kind]*fsm.FSM

	inputMu sync.Mutex
	input   *big.Int

	feed   event.Feed
	logger logrus.FieldLogger
}

func New(staking StakingActions, token TokenActions, network NetworkConnector,
	prompt ConfirmationPrompt, tracker TxTracker, chainID uint64,
	stakingToken types.Token, spender, from common.Address) *Orchestrator {
	machines := make(map[Kind]*fsm.FSM, 4)
	for _, kind := range []Kind{KindApprove, KindStake, KindWithdraw, KindClaim} {
		machines[kind] = newActionFSM()
	}
	return &Orchestrator{
		staking:      staking,
		token:        token,
		network:      network,
		prompt:       prompt,
		tracker:      tracker,
		chainID:      chainID,
		spender:      spender,
		from:         from,
		stakingToken: stakingToken,
		machines:     machines,
		logger:       loggers.Logger(loggers.Orchestrator),
	}
}

func newActionFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventBegin, Src: []string{StateIdle}, Dst: StateNetworkCheck},
			{Name: eventNetworkOK, Src: []string{StateNetworkCheck}, Dst: StateAwaitingConfirmation},
			{Name: eventConfirm, Src: []string{StateAwaitingConfirmation}, Dst: StateSubmitted},
			{Name: eventSucceed, Src: []string{StateSubmitted}, Dst: StateConfirmed},
			{Name: eventFail, Src: []string{StateNetworkCheck, StateAwaitingConfirmation, StateSubmitted}, Dst: StateFailed},
			{Name: eventReset, Src: []string{StateNetworkCheck, StateAwaitingConfirmation, StateConfirmed, StateFailed}, Dst: StateIdle},
		},
		fsm.Callbacks{},
	)
}

// State reports the current lifecycle state of an action kind.
func (o *Orchestrator) State(kind Kind) string {
	return o.machines[kind].Current()
}

// SetInputAmount records the amount the user typed. It is transient: a
// successful stake clears it.
func (o *Orchestrator) SetInputAmount(v *big.Int) {
	o.inputMu.Lock()
	defer o.inputMu.Unlock()
	o.input = v
}

func (o *Orchestrator) InputAmount() maybe.Value[*big.Int] {
	o.inputMu.Lock()
	defer o.inputMu.Unlock()
	if o.input == nil {
		return maybe.Unknown[*big.Int]()
	}
	return maybe.Known(o.input)
}

func (o *Orchestrator) clearInputAmount() {
	o.inputMu.Lock()
	defer o.inputMu.Unlock()
	o.input = nil
}

// SubscribeActions delivers an event on submission and on each terminal
// state.
func (o *Orchestrator) SubscribeActions(ch chan<- events.ActionEvent) event.Subscription {
	return o.feed.Subscribe(ch)
}

// Approve pre-authorizes the staking contract for the current input amount.
// The input survives the approval; it is still needed for the stake itself.
func (o *Orchestrator) Approve(ctx context.Context) error {
	amount, ok := o.InputAmount().Get()
	if !ok {
		return ErrNoInputAmount
	}
	conf := Confirmation{Kind: KindApprove, Token: o.stakingToken, Amount: amount}
	return o.run(ctx, KindApprove, conf, func(ctx context.Context) (*ethtypes.Transaction, error) {
		return o.token.Approve(ctx, o.spender, amount)
	}, false)
}

func (o *Orchestrator) Stake(ctx context.Context) error {
	amount, ok := o.InputAmount().Get()
	if !ok {
		return ErrNoInputAmount
	}
	conf := Confirmation{Kind: KindStake, Token: o.stakingToken, Amount: amount}
	return o.run(ctx, KindStake, conf, func(ctx context.Context) (*ethtypes.Transaction, error) {
		return o.staking.Stake(ctx, amount)
	}, true)
}

// Withdraw takes a percentage of the current stake, 1 to 100. The full
// percentage maps to exit(), a different contract call that also claims
// rewards; anything lower withdraws exactly stake*pct/100 and leaves rewards
// untouched.
func (o *Orchestrator) Withdraw(ctx context.Context, percentage uint8, stakeBalance maybe.Value[*big.Int]) error {
	if percentage < 1 || percentage > 100 {
		return ErrInvalidPercentage
	}
	stake, ok := stakeBalance.Get()
	if !ok {
		return ErrUnknownStake
	}

	if percentage == fullExitPercentage {
		conf := Confirmation{Kind: KindWithdraw, Token: o.stakingToken, Amount: stake, Percentage: percentage}
		return o.run(ctx, KindWithdraw, conf, func(ctx context.Context) (*ethtypes.Transaction, error) {
			return o.staking.Exit(ctx)
		}, false)
	}

	amount, err := fixedpoint.MulDiv(stake, big.NewInt(int64(percentage)), big.NewInt(100))
	if err != nil {
		return err
	}
	conf := Confirmation{Kind: KindWithdraw, Token: o.stakingToken, Amount: amount, Percentage: percentage}
	return o.run(ctx, KindWithdraw, conf, func(ctx context.Context) (*ethtypes.Transaction, error) {
		return o.staking.Withdraw(ctx, amount)
	}, false)
}

func (o *Orchestrator) Claim(ctx context.Context) error {
	conf := Confirmation{Kind: KindClaim, Token: o.stakingToken}
	return o.run(ctx, KindClaim, conf, func(ctx context.Context) (*ethtypes.Transaction, error) {
		return o.staking.GetReward(ctx)
	}, false)
}

// run drives one action through its lifecycle. Failures terminate this
// invocation only; there is no automatic retry.
func (o *Orchestrator) run(ctx context.Context, kind Kind, conf Confirmation,
	submit func(context.Context) (*ethtypes.Transaction, error), clearInput bool) error {

	m := o.machines[kind]
	if err := m.Event(eventBegin); err != nil {
		return ErrActionInFlight
	}
	defer o.reset(kind)

	ok, err := o.network.CheckConnectedNetworkID(ctx, o.chainID)
	if err != nil {
		_ = m.Event(eventFail)
		return errors.Wrapf(err, "network check for %s", kind)
	}
	if !ok {
		// abort before anything is shown or submitted
		o.logger.Warnf("%s aborted: wrong network, want chain %d", kind, o.chainID)
		return ErrWrongNetwork
	}
	_ = m.Event(eventNetworkOK)

	confirmed, err := o.prompt.Show(ctx, conf)
	if err != nil {
		_ = m.Event(eventFail)
		return errors.Wrapf(err, "confirmation for %s", kind)
	}
	if !confirmed {
		// user declined: back to idle, nothing surfaced
		o.logger.Debugf("%s cancelled by user", kind)
		return nil
	}
	_ = m.Event(eventConfirm)

	tx, err := submit(ctx)
	if err != nil {
		_ = m.Event(eventFail)
		o.logger.WithError(err).Errorf("%s submission failed", kind)
		return errors.Wrapf(err, "submit %s", kind)
	}
	if clearInput {
		o.clearInputAmount()
	}
	o.tracker.Add(&types.TxRecord{
		Hash:      tx.Hash(),
		Kind:      string(kind),
		From:      o.from,
		Amount:    conf.Amount,
		CreatedAt: time.Now(),
		Status:    types.TxPending,
	})
	o.feed.Send(events.ActionEvent{Kind: string(kind), Hash: tx.Hash(), Status: types.TxPending})

	receipt, err := o.tracker.WaitForReceipt(ctx, tx.Hash())
	if err != nil {
		_ = m.Event(eventFail)
		o.feed.Send(events.ActionEvent{Kind: string(kind), Hash: tx.Hash(), Status: types.TxFailed})
		o.logger.WithError(err).Errorf("%s not confirmed", kind)
		return errors.Wrapf(err, "wait for %s", kind)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		_ = m.Event(eventFail)
		o.feed.Send(events.ActionEvent{Kind: string(kind), Hash: tx.Hash(), Status: types.TxFailed})
		o.logger.Errorf("%s reverted in block %d", kind, receipt.BlockNumber.Uint64())
		return errors.Wrapf(ErrReverted, "%s %s", kind, tx.Hash().Hex())
	}
	_ = m.Event(eventSucceed)
	o.feed.Send(events.ActionEvent{Kind: string(kind), Hash: tx.Hash(), Status: types.TxConfirmed})
	o.logger.WithFields(logrus.Fields{"kind": kind, "hash": tx.Hash().Hex()}).Info("action confirmed")
	return nil
}

// reset returns a machine from any terminal or intermediate state to idle so
// the user can re-invoke the action.
func (o *Orchestrator) reset(kind Kind) {
	m := o.machines[kind]
	if !m.Is(StateIdle) {
		_ = m.Event(eventReset)
	}
}
