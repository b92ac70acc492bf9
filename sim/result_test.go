package sim

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() Result {
	return Result{
		RunID:                "run-1",
		Seed:                 42,
		TotalGenerated:       10,
		TotalServed:          8,
		TotalRejected:        2,
		Completed:            8,
		RejectionProbability: 0.2,
		MeanWait:             0.5,
		MeanService:          1.2,
		MeanSystemTime:       1.7,
		Sources: []SourceResult{
			{SourceID: 1, Generated: 10, Served: 8, Rejected: 2, RejectionProbability: 0.2},
		},
		Servers:     []ServerResult{{ServerID: 1, Served: 8, BusyTime: 9.6, Utilization: 0.8}},
		ElapsedTime: 12,
	}
}

func TestResult_Print(t *testing.T) {
	var buf bytes.Buffer
	sampleResult().Print(&buf)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "=== Simulation Metrics ==="))
	assert.Contains(t, out, "Rejection Probability: 0.2000")
	assert.Contains(t, out, "=== Sources ===")
	assert.Contains(t, out, "=== Servers ===")
	assert.Contains(t, out, "Total simulated time: 12.00")
}

func TestResult_SaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, sampleResult().SaveJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, jsoniter.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, 0.2, decoded["rejection_probability"])
	assert.Len(t, decoded["servers"], 1)
}

func TestResult_SaveJSONBadPath(t *testing.T) {
	err := sampleResult().SaveJSON(filepath.Join(t.TempDir(), "missing", "result.json"))
	assert.Error(t, err)
}
