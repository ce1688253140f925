package server

import (
	"math/big"

	"github.com/axiomesh/axiom-farm/pkg/maybe"
	"github.com/axiomesh/axiom-farm/pkg/types"
)

// Absent values serialize as JSON null. A client can always tell "not
// fetched yet" apart from a genuine zero.

type positionResponse struct {
	Identity identityJSON `json:"identity"`
	Snapshot snapshotJSON `json:"snapshot"`
	Quotes   quotesJSON   `json:"quotes"`
	Derived  derivedJSON  `json:"derived"`
	Gate     gateView     `json:"gate"`
}

type identityJSON struct {
	Account  string `json:"account"`
	Contract string `json:"contract"`
}

type snapshotJSON struct {
	StakeBalance         *string `json:"stakeBalance"`
	TotalStaked          *string `json:"totalStaked"`
	Earned               *string `json:"earned"`
	RewardRate           *string `json:"rewardRate"`
	PeriodFinish         *int64  `json:"periodFinish"`
	Allowance            *string `json:"allowance"`
	TokenBalance         *string `json:"tokenBalance"`
	TotalStakedValuation *string `json:"totalStakedValuation"`
	UserStakeValuation   *string `json:"userStakeValuation"`
}

type quotesJSON struct {
	StakingTokenUSD *string `json:"stakingTokenUsd"`
	RewardTokenUSD  *string `json:"rewardTokenUsd"`
}

type derivedJSON struct {
	RewardsExpired     *bool   `json:"rewardsExpired"`
	TotalRewardsPerDay *string `json:"totalRewardsPerDay"`
	UserRewardsPerDay  *string `json:"userRewardsPerDay"`
	APR                *string `json:"apr"`
	StakedPositionUSD  *string `json:"stakedPositionUsd"`
}

type gateView struct {
	NeedsApproval *bool  `json:"needsApproval"`
	StakeEnabled  bool   `json:"stakeEnabled"`
	Warning       string `json:"warning,omitempty"`
}

type actionView struct {
	Hash        string  `json:"hash"`
	Kind        string  `json:"kind"`
	From        string  `json:"from"`
	Amount      *string `json:"amount"`
	CreatedAt   int64   `json:"createdAt"`
	Status      string  `json:"status"`
	BlockNumber uint64  `json:"blockNumber,omitempty"`
}

func identityView(id types.Identity) identityJSON {
	return identityJSON{
		Account:  id.Account.Hex(),
		Contract: id.Contract.Hex(),
	}
}

func snapshotView(s types.StakingSnapshot) snapshotJSON {
	return snapshotJSON{
		StakeBalance:         viewBig(s.StakeBalance),
		TotalStaked:          viewBig(s.TotalStaked),
		Earned:               viewBig(s.Earned),
		RewardRate:           viewBig(s.RewardRate),
		PeriodFinish:         viewInt64(s.PeriodFinish),
		Allowance:            viewBig(s.Allowance),
		TokenBalance:         viewBig(s.TokenBalance),
		TotalStakedValuation: viewBig(s.TotalStakedValuation),
		UserStakeValuation:   viewBig(s.UserStakeValuation),
	}
}

func quotesView(q types.Quotes) quotesJSON {
	return quotesJSON{
		StakingTokenUSD: viewBig(q.StakingTokenUSD),
		RewardTokenUSD:  viewBig(q.RewardTokenUSD),
	}
}

func derivedView(m types.DerivedMetrics) derivedJSON {
	return derivedJSON{
		RewardsExpired:     viewBool(m.RewardsExpired),
		TotalRewardsPerDay: viewBig(m.TotalRewardsPerDay),
		UserRewardsPerDay:  viewBig(m.UserRewardsPerDay),
		APR:                viewBig(m.APR),
		StakedPositionUSD:  viewBig(m.StakedPositionUSD),
	}
}

func newActionView(rec *types.TxRecord) actionView {
	var amount *string
	if rec.Amount != nil {
		s := rec.Amount.String()
		amount = &s
	}
	return actionView{
		Hash:        rec.Hash.Hex(),
		Kind:        rec.Kind,
		From:        rec.From.Hex(),
		Amount:      amount,
		CreatedAt:   rec.CreatedAt.Unix(),
		Status:      string(rec.Status),
		BlockNumber: rec.BlockNumber,
	}
}

func viewBig(v maybe.Value[*big.Int]) *string {
	x, ok := v.Get()
	if !ok {
		return nil
	}
	s := x.String()
	return &s
}

func viewInt64(v maybe.Value[int64]) *int64 {
	x, ok := v.Get()
	if !ok {
		return nil
	}
	return &x
}

func viewBool(v maybe.Value[bool]) *bool {
	x, ok := v.Get()
	if !ok {
		return nil
	}
	return &x
}
