package deploy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xnet.company/lockup/internal/config"
	"xnet.company/lockup/internal/ledger"
	"xnet.company/lockup/internal/types"
)

func TestMergeCreatesTargetAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "lockup2-beneficiaries.localhost.json")
	source := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(source,
		[]byte(`{"count":3,"beneficiaries":[["0xa",1,1],["0xb",2,2],["0xa",1,1]]}`), 0o644))

	d := &Driver{}
	res, err := d.Merge(target, source)
	require.NoError(t, err)
	assert.Len(t, res.Inserted, 2)
	assert.Len(t, res.Duplicates, 1)

	first, err := os.ReadFile(target)
	require.NoError(t, err)

	res, err = d.Merge(target, source)
	require.NoError(t, err)
	assert.Empty(t, res.Inserted)
	assert.Len(t, res.Duplicates, 3)

	second, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	list, err := ledger.LoadCandidates(target)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, []types.Beneficiary{{Address: "0xa", Start: 1, Duration: 1}, {Address: "0xb", Start: 2, Duration: 2}}, list.Beneficiaries)
}

func TestMergeMissingSource(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.json")

	_, err := (&Driver{}).Merge(target, filepath.Join(dir, "missing.json"))
	assert.True(t, config.IsError(err))
	assert.NoFileExists(t, target)
}

func TestMergeRejectsMalformedSource(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.json")
	source := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(source, []byte(`{"count":1,"beneficiaries":[["0xa",1]]}`), 0o644))

	d := &Driver{}
	_, err := d.Merge(target, source)
	var ce *ledger.ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.True(t, d.Recorder.Failed())
	assert.NoFileExists(t, target)
}
