package queue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob_Decode(t *testing.T) {
	streamID := uuid.New()
	job, err := NewJob(JobTypeDailyAccumulate, DailyPayload{StreamID: streamID, Date: "2024-03-09", RightDelta: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Zero(t, job.Attempt)

	raw, err := json.Marshal(job)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"daily_accumulate"`)

	var back Job
	require.NoError(t, json.Unmarshal(raw, &back))
	var p DailyPayload
	require.NoError(t, back.Decode(&p))
	assert.Equal(t, streamID, p.StreamID)
	assert.Equal(t, 10, p.RightDelta)
}

func TestDecode_WrongShape(t *testing.T) {
	job := &Job{Type: JobTypeGlobalIncrement, Payload: json.RawMessage(`{"amount":"lots"}`)}
	var p GlobalPayload
	assert.Error(t, job.Decode(&p))
}
