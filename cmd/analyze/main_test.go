package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var datasetPath = filepath.Join("..", "..", "testdata", "dataset.json")

type row struct {
	SellerID string  `json:"seller_id"`
	Profit   float64 `json:"profit"`
	Bonus    float64 `json:"bonus"`
}

func TestRun_DataFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-data", datasetPath}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var rows []row
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, "seller_1", rows[0].SellerID)
	assert.InDelta(t, 114.4, rows[0].Profit, 1e-9)
	assert.InDelta(t, 17.16, rows[0].Bonus, 1e-9)
	assert.Equal(t, "seller_4", rows[3].SellerID)
}

func TestRun_SummaryAndWorkers(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-data", datasetPath, "-workers", "3", "-summary"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out struct {
		Rows    []row `json:"rows"`
		Summary struct {
			Sellers int `json:"sellers"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Len(t, out.Rows, 4)
	assert.Equal(t, 4, out.Summary.Sellers)
}

func TestRun_Generate(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-generate", "50", "-seed", "7", "-bonus", "flat"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var rows []row
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rows))
	assert.NotEmpty(t, rows)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].Profit, rows[i].Profit)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no source", nil, 2},
		{"both sources", []string{"-data", datasetPath, "-generate", "5"}, 2},
		{"unknown strategy", []string{"-data", datasetPath, "-revenue", "gross"}, 2},
		{"missing file", []string{"-data", filepath.Join(t.TempDir(), "none.json")}, 1},
		{"bad flag", []string{"-nope"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.code, run(context.Background(), tt.args, &stdout, &stderr))
			assert.Empty(t, stdout.String())
		})
	}
}
