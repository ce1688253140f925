package orchestrator

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/axiom-farm/pkg/maybe"
	"github.com/axiomesh/axiom-farm/pkg/types"
)

func newTx(nonce uint64) *ethtypes.Transaction {
	return ethtypes.NewTx(&ethtypes.LegacyTx{Nonce: nonce})
}

type fakeStaking struct {
	mu        sync.Mutex
	stakes    []*big.Int
	withdraws []*big.Int
	exits     int
	claims    int
	err       error
}

func (f *fakeStaking) Stake(_ context.Context, amount *big.Int) (*ethtypes.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.stakes = append(f.stakes, new(big.Int).Set(amount))
	return newTx(1), nil
}

func (f *fakeStaking) Withdraw(_ context.Context, amount *big.Int) (*ethtypes.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.withdraws = append(f.withdraws, new(big.Int).Set(amount))
	return newTx(2), nil
}

func (f *fakeStaking) GetReward(_ context.Context) (*ethtypes.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims++
	return newTx(3), nil
}

func (f *fakeStaking) Exit(_ context.Context) (*ethtypes.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exits++
	return newTx(4), nil
}

type fakeToken struct {
	mu       sync.Mutex
	approved []*big.Int
}

func (f *fakeToken) Approve(_ context.Context, _ common.Address, amount *big.Int) (*ethtypes.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved = append(f.approved, new(big.Int).Set(amount))
	return newTx(5), nil
}

type fakeNetwork struct {
	ok  bool
	err error
}

func (f *fakeNetwork) CheckConnectedNetworkID(_ context.Context, _ uint64) (bool, error) {
	return f.ok, f.err
}

type fakePrompt struct {
	mu      sync.Mutex
	confirm bool
	shown   []Confirmation
	block   chan struct{} // when non-nil, Show waits until it closes
}

func (f *fakePrompt) Show(ctx context.Context, conf Confirmation) (bool, error) {
	f.mu.Lock()
	f.shown = append(f.shown, conf)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return f.confirm, nil
}

func (f *fakePrompt) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.shown)
}

type fakeTracker struct {
	mu      sync.Mutex
	added   []*types.TxRecord
	status  uint64
	waitErr error
}

func (f *fakeTracker) Add(rec *types.TxRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, rec)
}

func (f *fakeTracker) WaitForReceipt(_ context.Context, _ common.Hash) (*ethtypes.Receipt, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return &ethtypes.Receipt{Status: f.status, BlockNumber: big.NewInt(1)}, nil
}

func (f *fakeTracker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added)
}

type fixture struct {
	orch    *Orchestrator
	staking *fakeStaking
	token   *fakeToken
	network *fakeNetwork
	prompt  *fakePrompt
	tracker *fakeTracker
}

func newFixture() *fixture {
	f := &fixture{
		staking: &fakeStaking{},
		token:   &fakeToken{},
		network: &fakeNetwork{ok: true},
		prompt:  &fakePrompt{confirm: true},
		tracker: &fakeTracker{status: ethtypes.ReceiptStatusSuccessful},
	}
	token := types.Token{Symbol: "LP", Decimals: 18}
	f.orch = New(f.staking, f.token, f.network, f.prompt, f.tracker, 5,
		token, common.HexToAddress("0xaa"), common.HexToAddress("0xbb"))
	return f
}

func TestStakeHappyPath(t *testing.T) {
	f := newFixture()
	f.orch.SetInputAmount(big.NewInt(1000))

	require.Nil(t, f.orch.Stake(context.Background()))

	require.Len(t, f.staking.stakes, 1)
	assert.Equal(t, big.NewInt(1000), f.staking.stakes[0])
	require.Equal(t, 1, f.tracker.count())
	assert.Equal(t, "stake", f.tracker.added[0].Kind)
	assert.Equal(t, StateIdle, f.orch.State(KindStake))

	_, ok := f.orch.InputAmount().Get()
	assert.False(t, ok, "input cleared after a successful stake")
}

func TestApproveKeepsInput(t *testing.T) {
	f := newFixture()
	f.orch.SetInputAmount(big.NewInt(500))

	require.Nil(t, f.orch.Approve(context.Background()))

	require.Len(t, f.token.approved, 1)
	assert.Equal(t, big.NewInt(500), f.token.approved[0])
	amount, ok := f.orch.InputAmount().Get()
	require.True(t, ok, "input survives the approval")
	assert.Equal(t, big.NewInt(500), amount)
}

func TestWrongNetworkAbortsBeforePrompt(t *testing.T) {
	f := newFixture()
	f.network.ok = false
	f.orch.SetInputAmount(big.NewInt(1))

	err := f.orch.Stake(context.Background())
	assert.ErrorIs(t, err, ErrWrongNetwork)
	assert.Zero(t, f.prompt.count(), "user must not be prompted on the wrong network")
	assert.Zero(t, f.tracker.count())
	assert.Empty(t, f.staking.stakes)
	assert.Equal(t, StateIdle, f.orch.State(KindStake))
}

func TestUserCancelIsSilent(t *testing.T) {
	f := newFixture()
	f.prompt.confirm = false
	f.orch.SetInputAmount(big.NewInt(1))

	assert.Nil(t, f.orch.Stake(context.Background()))
	assert.Empty(t, f.staking.stakes)
	assert.Zero(t, f.tracker.count())
	assert.Equal(t, StateIdle, f.orch.State(KindStake))

	// cancelling does not discard the typed amount
	_, ok := f.orch.InputAmount().Get()
	assert.True(t, ok)
}

func TestStakeWithoutInput(t *testing.T) {
	f := newFixture()
	assert.ErrorIs(t, f.orch.Stake(context.Background()), ErrNoInputAmount)
}

func TestWithdrawFullUsesExit(t *testing.T) {
	f := newFixture()
	stake := maybe.Known(big.NewInt(1000))

	require.Nil(t, f.orch.Withdraw(context.Background(), 100, stake))
	assert.Equal(t, 1, f.staking.exits)
	assert.Empty(t, f.staking.withdraws)
}

func TestWithdrawPartial(t *testing.T) {
	f := newFixture()
	stake := maybe.Known(big.NewInt(1000))

	require.Nil(t, f.orch.Withdraw(context.Background(), 50, stake))
	require.Len(t, f.staking.withdraws, 1)
	assert.Equal(t, big.NewInt(500), f.staking.withdraws[0])
	assert.Zero(t, f.staking.exits)
	// partial withdrawals leave rewards alone
	assert.Zero(t, f.staking.claims)
}

func TestWithdrawValidation(t *testing.T) {
	f := newFixture()
	stake := maybe.Known(big.NewInt(1000))

	assert.ErrorIs(t, f.orch.Withdraw(context.Background(), 0, stake), ErrInvalidPercentage)
	assert.ErrorIs(t, f.orch.Withdraw(context.Background(), 101, stake), ErrInvalidPercentage)
	assert.ErrorIs(t, f.orch.Withdraw(context.Background(), 50, maybe.Unknown[*big.Int]()), ErrUnknownStake)
	assert.Zero(t, f.prompt.count())
}

func TestDuplicateActionRejected(t *testing.T) {
	f := newFixture()
	f.prompt.block = make(chan struct{})
	f.orch.SetInputAmount(big.NewInt(1))

	done := make(chan error, 1)
	go func() {
		done <- f.orch.Stake(context.Background())
	}()

	// wait for the first invocation to reach the prompt
	require.Eventually(t, func() bool {
		return f.prompt.count() == 1
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, f.orch.Stake(context.Background()), ErrActionInFlight)

	close(f.prompt.block)
	require.Nil(t, <-done)
	assert.Equal(t, 1, f.prompt.count())
	assert.Len(t, f.staking.stakes, 1)
}

func TestRevertedTransaction(t *testing.T) {
	f := newFixture()
	f.tracker.status = ethtypes.ReceiptStatusFailed
	f.orch.SetInputAmount(big.NewInt(1))

	err := f.orch.Stake(context.Background())
	assert.ErrorIs(t, err, ErrReverted)
	assert.Equal(t, StateIdle, f.orch.State(KindStake), "failed actions reset to idle")
}

func TestSubmitFailureSurfaces(t *testing.T) {
	f := newFixture()
	f.staking.err = errors.New("nonce too low")
	f.orch.SetInputAmount(big.NewInt(1))

	err := f.orch.Stake(context.Background())
	require.NotNil(t, err)
	assert.Zero(t, f.tracker.count(), "nothing tracked when the submission fails")

	// the input is kept so the user can retry
	_, ok := f.orch.InputAmount().Get()
	assert.True(t, ok)
}

func TestClaim(t *testing.T) {
	f := newFixture()
	require.Nil(t, f.orch.Claim(context.Background()))
	assert.Equal(t, 1, f.staking.claims)
	require.Equal(t, 1, f.tracker.count())
	assert.Equal(t, "claim", f.tracker.added[0].Kind)
}
