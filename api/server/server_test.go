package server

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/axiom-farm/internal/orchestrator"
	"github.com/axiomesh/axiom-farm/internal/yield"
	"github.com/axiomesh/axiom-farm/pkg/maybe"
	"github.com/axiomesh/axiom-farm/pkg/repo"
	"github.com/axiomesh/axiom-farm/pkg/types"
)

type fakePosition struct {
	snap   types.StakingSnapshot
	quotes types.Quotes
	id     types.Identity
}

func (f *fakePosition) Snapshot() types.StakingSnapshot { return f.snap }
func (f *fakePosition) Quotes() types.Quotes            { return f.quotes }
func (f *fakePosition) Identity() types.Identity        { return f.id }

type fakeActions struct {
	input       *big.Int
	calls       []string
	withdrawPct uint8
	withdrawArg maybe.Value[*big.Int]
	err         error
}

func (f *fakeActions) SetInputAmount(v *big.Int) { f.input = v }

func (f *fakeActions) InputAmount() maybe.Value[*big.Int] {
	if f.input == nil {
		return maybe.Unknown[*big.Int]()
	}
	return maybe.Known(f.input)
}

func (f *fakeActions) Approve(context.Context) error {
	f.calls = append(f.calls, "approve")
	return f.err
}

func (f *fakeActions) Stake(context.Context) error {
	f.calls = append(f.calls, "stake")
	return f.err
}

func (f *fakeActions) Withdraw(_ context.Context, pct uint8, stake maybe.Value[*big.Int]) error {
	f.calls = append(f.calls, "withdraw")
	f.withdrawPct = pct
	f.withdrawArg = stake
	return f.err
}

func (f *fakeActions) Claim(context.Context) error {
	f.calls = append(f.calls, "claim")
	return f.err
}

func (f *fakeActions) State(orchestrator.Kind) string { return orchestrator.StateIdle }

type fakeLister struct {
	recs []*types.TxRecord
}

func (f *fakeLister) List() []*types.TxRecord { return f.recs }

type fixture struct {
	srv      *Server
	position *fakePosition
	actions  *fakeActions
	lister   *fakeLister
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rep := repo.Default(t.TempDir())
	staking := rep.Config.Tokens.Staking.ToToken()
	reward := rep.Config.Tokens.Reward.ToToken()

	f := &fixture{
		position: &fakePosition{},
		actions:  &fakeActions{},
		lister:   &fakeLister{},
	}
	f.srv = New(rep, f.position, yield.NewCalculator(staking, reward), f.actions, f.lister)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.srv.handler.ServeHTTP(rec, req)
	return rec
}

func TestPositionAbsentFieldsAreNull(t *testing.T) {
	f := newFixture(t)
	f.position.snap.StakeBalance = maybe.Known(big.NewInt(1000))

	rec := f.do(http.MethodGet, "/api/v1/position", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp positionResponse
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Snapshot.StakeBalance)
	assert.Equal(t, "1000", *resp.Snapshot.StakeBalance)
	assert.Nil(t, resp.Snapshot.Earned, "unfetched field must be null, not zero")
	assert.Nil(t, resp.Derived.APR)
	assert.Nil(t, resp.Gate.NeedsApproval)
	assert.False(t, resp.Gate.StakeEnabled)
}

func TestStakeParsesHumanAmount(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/actions/stake", `{"amount":"1.5"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"stake"}, f.actions.calls)

	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, want, f.actions.input)
}

func TestStakeRejectsBadBody(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/actions/stake", `{"amount":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.actions.calls)
}

func TestWithdrawForwardsSnapshotStake(t *testing.T) {
	f := newFixture(t)
	f.position.snap.StakeBalance = maybe.Known(big.NewInt(777))

	rec := f.do(http.MethodPost, "/api/v1/actions/withdraw", `{"percentage":50}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint8(50), f.actions.withdrawPct)
	v, ok := f.actions.withdrawArg.Get()
	require.True(t, ok)
	assert.Equal(t, big.NewInt(777), v)
}

func TestActionErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{orchestrator.ErrActionInFlight, http.StatusConflict},
		{orchestrator.ErrWrongNetwork, http.StatusServiceUnavailable},
		{orchestrator.ErrNoInputAmount, http.StatusBadRequest},
		{orchestrator.ErrReverted, http.StatusBadGateway},
	}
	for _, tc := range cases {
		f := newFixture(t)
		f.actions.err = tc.err
		rec := f.do(http.MethodPost, "/api/v1/actions/claim", "")
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
	}
}

func TestListActions(t *testing.T) {
	f := newFixture(t)
	f.lister.recs = []*types.TxRecord{
		{
			Hash:      common.HexToHash("0x01"),
			Kind:      "stake",
			Amount:    big.NewInt(100),
			CreatedAt: time.Now(),
			Status:    types.TxConfirmed,
		},
	}

	rec := f.do(http.MethodGet, "/api/v1/actions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []actionView
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "stake", out[0].Kind)
	assert.Equal(t, "confirmed", out[0].Status)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
