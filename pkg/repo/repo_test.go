package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlushAndLoad(t *testing.T) {
	rep := MockRepo(t)
	rep.Config.Network.ChainID = 42161
	rep.Config.Position.PollInterval = Duration(2 * time.Second)
	require.Nil(t, rep.Flush())

	loaded, err := Load(rep.RepoRoot)
	require.Nil(t, err)
	assert.Equal(t, uint64(42161), loaded.Config.Network.ChainID)
	assert.Equal(t, 2*time.Second, loaded.Config.Position.PollInterval.ToDuration())
	assert.Equal(t, "LP", loaded.Config.Tokens.Staking.Symbol)
}

func TestLoadWithoutConfigFileFallsBackToDefault(t *testing.T) {
	root := t.TempDir()
	rep, err := Load(root)
	require.Nil(t, err)
	assert.Equal(t, 5*time.Second, rep.Config.Position.PollInterval.ToDuration())
	assert.Equal(t, "info", rep.Config.Log.Level)
}

func TestEnvOverride(t *testing.T) {
	rep := MockRepo(t)
	require.Nil(t, rep.Flush())

	t.Setenv("AXIOM_FARM_NETWORK_CHAIN_ID", "10")
	loaded, err := Load(rep.RepoRoot)
	require.Nil(t, err)
	assert.Equal(t, uint64(10), loaded.Config.Network.ChainID)
}

func TestTokenConfigResolution(t *testing.T) {
	tc := TokenConfig{Symbol: "LP", Address: "0x00000000000000000000000000000000000000a1", Decimals: 6}
	tok := tc.ToToken()
	assert.Equal(t, "LP", tok.Symbol)
	assert.Equal(t, uint8(6), tok.Decimals)
	assert.Equal(t, common.HexToAddress(tc.Address), tok.Address)
}

func TestBadConfigFileRejected(t *testing.T) {
	root := t.TempDir()
	bad := []byte("[network]\nchain_id = \"not-a-number\"\n")
	require.Nil(t, os.WriteFile(filepath.Join(root, CfgFileName), bad, 0644))
	_, err := Load(root)
	assert.NotNil(t, err)
}
