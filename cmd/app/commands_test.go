package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetName(t *testing.T) {
	assert.Equal(t, "AAPL", assetName("/data/AAPL.csv"))
	assert.Equal(t, "btc", assetName("btc"))
}

func TestReadCSV(t *testing.T) {
	p := filepath.Join(t.TempDir(), "s.csv")
	require.NoError(t, os.WriteFile(p, []byte("price\n1.5\n2\nn/a\n3\n"), 0o600))

	v, err := readCSV(p)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2, 3}, v)

	_, err = readCSV(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"a": 1}))
	assert.JSONEq(t, `{"a":1}`, buf.String())
	assert.Equal(t, 7, orDefault(0, 7))
	assert.Equal(t, 3, orDefault(3, 7))
}
