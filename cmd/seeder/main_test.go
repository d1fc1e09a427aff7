package main

import (
	"encoding/json"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleMessage(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	msg, err := sampleMessage(rng, 0, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.RequestID)
	assert.Equal(t, "seeder", msg.Source)

	var reading map[string]any
	require.NoError(t, json.Unmarshal(msg.Reading, &reading))
	assert.Equal(t, "turbine-01", reading["sensorId"])
	assert.Equal(t, "North Ridge", reading["location"])

	power := reading["powerOutput"].(float64)
	assert.GreaterOrEqual(t, power, 2400*0.4-0.01)
	assert.LessOrEqual(t, power, 2400*0.8+0.01)
}

func TestSampleMessage_RotatesSensors(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	seen := make([]string, 0, len(sampleSensors))
	for i := range sampleSensors {
		msg, err := sampleMessage(rng, i, 0)
		require.NoError(t, err)

		var reading map[string]any
		require.NoError(t, json.Unmarshal(msg.Reading, &reading))
		seen = append(seen, reading["sensorId"].(string))
	}
	assert.Equal(t, []string{"turbine-01", "turbine-02", "solar-07", "solar-08", "hydro-03"}, seen)
}

func TestSampleMessage_Spike(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	// index 4 is the 5th message, hydro-03 rated 1200
	msg, err := sampleMessage(rng, 4, 5)
	require.NoError(t, err)

	var reading map[string]any
	require.NoError(t, json.Unmarshal(msg.Reading, &reading))
	assert.GreaterOrEqual(t, reading["powerOutput"].(float64), 1200*0.4*4-0.01)
}

func TestRootCmd_RejectsNonPositiveCount(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--count", "0"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--count must be positive")
}
