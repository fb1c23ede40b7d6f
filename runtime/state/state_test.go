package state

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_UnfinishedCount(t *testing.T) {
	snapshot := New()
	snapshot.LoopIdx = 3
	snapshot.StepIdx[0] = 1
	snapshot.StepIdx[1] = 3
	snapshot.StepIdx[2] = 0

	assert.Equal(t, 0, snapshot.UnfinishedCount(0, 3))
	assert.Equal(t, 1, snapshot.UnfinishedCount(1, 3))
	assert.Equal(t, 2, snapshot.UnfinishedCount(3, 3))
}

func TestSnapshot_Admit(t *testing.T) {
	snapshot := New()
	assert.Equal(t, 0, snapshot.Admit())
	assert.Equal(t, 1, snapshot.Admit())
	assert.Equal(t, 2, snapshot.LoopIdx)
	assert.Equal(t, 0, snapshot.StepIdx[0])
	assert.NotNil(t, snapshot.LoopPrevOut[1])
}

func TestSnapshot_Abandon(t *testing.T) {
	snapshot := New()
	i := snapshot.Admit()
	snapshot.LoopPrevOut[i]["step1"] = "value"

	snapshot.Abandon(i, 3)

	assert.Equal(t, ExceptionSentinel, snapshot.LoopPrevOut[i][ExceptionKey])
	assert.Equal(t, 3, snapshot.StepIdx[i])
	assert.Equal(t, 0, snapshot.UnfinishedCount(1, 3))
}

func TestSnapshot_Reset(t *testing.T) {
	snapshot := New()
	i := snapshot.Admit()
	snapshot.StepIdx[i] = 2
	snapshot.LoopPrevOut[i]["step1"] = "value"
	snapshot.LoopTrace[i] = []Trace{{StepIdx: 0}, {StepIdx: 1}}

	snapshot.Reset(i)

	assert.Equal(t, 0, snapshot.StepIdx[i])
	assert.Empty(t, snapshot.LoopPrevOut[i])
	assert.Empty(t, snapshot.LoopTrace[i])
}

func TestSnapshot_Clone(t *testing.T) {
	snapshot := New()
	i := snapshot.Admit()
	snapshot.StepIdx[i] = 1
	snapshot.LoopPrevOut[i]["step1"] = "value"
	snapshot.LoopTrace[i] = []Trace{{StepIdx: 0}}
	stepN := 5
	snapshot.StepN = &stepN

	clone := snapshot.Clone()
	assert.Equal(t, snapshot.LoopIdx, clone.LoopIdx)
	assert.Equal(t, snapshot.StepIdx, clone.StepIdx)
	assert.Equal(t, snapshot.LoopPrevOut, clone.LoopPrevOut)
	assert.Equal(t, snapshot.LoopTrace, clone.LoopTrace)

	// The clone is independent of the source.
	clone.StepIdx[i] = 2
	clone.LoopPrevOut[i]["step2"] = "other"
	*clone.StepN = 1
	assert.Equal(t, 1, snapshot.StepIdx[i])
	assert.Len(t, snapshot.LoopPrevOut[i], 1)
	assert.Equal(t, 5, *snapshot.StepN)
}

func TestSnapshot_Validate(t *testing.T) {
	valid := New()
	i := valid.Admit()
	valid.StepIdx[i] = 3

	testCases := []struct {
		name      string
		snapshot  func() *Snapshot
		expectErr bool
	}{
		{
			name:     "empty snapshot",
			snapshot: func() *Snapshot { return New() },
		},
		{
			name:     "complete instance",
			snapshot: func() *Snapshot { return valid },
		},
		{
			name: "step index beyond step count",
			snapshot: func() *Snapshot {
				s := New()
				j := s.Admit()
				s.StepIdx[j] = 4
				return s
			},
			expectErr: true,
		},
		{
			name: "unknown loop instance",
			snapshot: func() *Snapshot {
				s := New()
				s.StepIdx[7] = 1
				return s
			},
			expectErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.snapshot().Validate(3)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.Nil(t, err)
		})
	}
}

func TestSnapshot_JSONRoundTrip(t *testing.T) {
	snapshot := New()
	i := snapshot.Admit()
	snapshot.LoopPrevOut[i]["step1"] = "value"
	snapshot.StepIdx[i] = 1
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	snapshot.LoopTrace[i] = []Trace{{Start: start, End: start.Add(5 * time.Minute), StepIdx: 0}}
	loopN := 2
	snapshot.LoopN = &loopN

	data, err := json.Marshal(snapshot)
	assert.Nil(t, err)

	var restored Snapshot
	assert.Nil(t, json.Unmarshal(data, &restored))
	restored.Normalize()

	assert.Equal(t, snapshot.LoopIdx, restored.LoopIdx)
	assert.Equal(t, snapshot.StepIdx, restored.StepIdx)
	assert.Equal(t, "value", restored.LoopPrevOut[i]["step1"])
	assert.Equal(t, snapshot.LoopTrace[i][0].Start, restored.LoopTrace[i][0].Start)
	assert.Equal(t, 2, *restored.LoopN)
	assert.Nil(t, restored.StepN)
}

func TestSnapshot_Outputs(t *testing.T) {
	snapshot := New()
	i := snapshot.Admit()
	snapshot.LoopPrevOut[i]["step1"] = "value"

	outputs := snapshot.Outputs(i)
	assert.Equal(t, "value", outputs["step1"])

	// Mutating the copy must not leak back.
	outputs["step2"] = "other"
	assert.Len(t, snapshot.LoopPrevOut[i], 1)
}
