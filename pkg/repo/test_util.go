package repo

import (
	"testing"
)

func MockRepo(t testing.TB) *Repo {
	repoRoot := t.TempDir()
	rep := Default(repoRoot)
	rep.Config.Contracts = Contracts{
		StakingRewards: "0x00000000000000000000000000000000000000aa",
		AmmSwap:        "0x00000000000000000000000000000000000000ab",
	}
	rep.Config.Tokens = Tokens{
		Staking: TokenConfig{Symbol: "LP", Address: "0x00000000000000000000000000000000000000a1", Decimals: 18},
		Reward:  TokenConfig{Symbol: "RWD", Address: "0x00000000000000000000000000000000000000a2", Decimals: 18},
	}
	rep.Config.Position.Account = "0x00000000000000000000000000000000000000f1"
	return rep
}
