package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "checkpoint.db"))
	require.NoError(t, err)
	defer db.Close()

	cio := NewCheckpointIO(db, "HKY", 0)
	data, err := cio.Load()
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, cio.Save(&CheckpointData{
		Parameters: map[string]float64{"kappa": 2.5, "pi_A": 0.3},
		Likelihood: -1234.5,
		Iter:       17,
	}))

	data, err = cio.Load()
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "HKY", data.Model)
	assert.Equal(t, 2.5, data.Parameters["kappa"])
	assert.Equal(t, -1234.5, data.Likelihood)
	assert.Equal(t, 17, data.Iter)
	assert.False(t, data.Final)

	// other models do not see the checkpoint
	other, err := NewCheckpointIO(db, "GTR", 0).Load()
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestOld(t *testing.T) {
	cio := NewCheckpointIO(nil, "JC", 3600)
	assert.False(t, cio.Old())
	cio = NewCheckpointIO(nil, "JC", -1)
	assert.True(t, cio.Old())
}

func TestNilDB(t *testing.T) {
	assert.NoError(t, SaveData(nil, []byte("x"), []byte("y")))
	data, err := LoadData(nil, []byte("x"))
	assert.NoError(t, err)
	assert.Nil(t, data)
}
