package cyclor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/cyclor"
	"github.com/viant/cyclor/extension"
	"github.com/viant/cyclor/model/loop"
	"github.com/viant/cyclor/runtime/state"
	cmemory "github.com/viant/cyclor/service/dao/checkpoint/memory"
)

type reviewOutput struct {
	Verdict string `json:"verdict"`
	Score   int    `json:"score"`
}

func researchDefinition(t *testing.T) *loop.Definition {
	t.Helper()
	def := loop.New("research")
	def.MustDefine("draft", func(ctx context.Context, prev map[string]interface{}) (loop.Emitter, error) {
		return loop.Emit("draft-out"), nil
	}).MustDefine("review", func(ctx context.Context, prev map[string]interface{}) (loop.Emitter, error) {
		return loop.Emit(reviewOutput{Verdict: "pass", Score: 9}), nil
	}).MustDefine("record", func(ctx context.Context, prev map[string]interface{}) (loop.Emitter, error) {
		return nil, nil
	})
	return def
}

func TestService_Run(t *testing.T) {
	srv, err := cyclor.New(researchDefinition(t),
		cyclor.WithLoopN(2),
		cyclor.WithWorkers(3))
	assert.Nil(t, err)

	err = srv.Run(context.Background())
	assert.Nil(t, err)

	snapshot := srv.Engine().Dump()
	assert.Equal(t, 2, snapshot.LoopIdx)
	for i := 0; i < 2; i++ {
		assert.Equal(t, 3, snapshot.StepIdx[i])
		assert.Equal(t, "draft-out", snapshot.LoopPrevOut[i]["draft"])
	}
}

func TestService_TimeBudgetFromConfig(t *testing.T) {
	config := cyclor.DefaultConfig()
	config.TimeBudget = "1ns"

	def := loop.New("timed")
	def.MustDefine("draft", func(ctx context.Context, prev map[string]interface{}) (loop.Emitter, error) {
		return nil, nil
	}).MustDefine("record", func(ctx context.Context, prev map[string]interface{}) (loop.Emitter, error) {
		return nil, nil
	})

	srv, err := cyclor.New(def, cyclor.WithConfig(config), cyclor.WithLoopN(5))
	assert.Nil(t, err)

	// The nanosecond budget expires before the first step completes.
	err = srv.Run(context.Background())
	assert.Nil(t, err)
	assert.NotNil(t, srv.Engine().Termination())
}

func TestService_CheckpointLifecycle(t *testing.T) {
	config := cyclor.DefaultConfig()
	config.CheckpointURL = t.TempDir()

	srv, err := cyclor.New(researchDefinition(t),
		cyclor.WithConfig(config),
		cyclor.WithLoopN(1))
	assert.Nil(t, err)
	assert.Nil(t, srv.Run(context.Background()))

	ctx := context.Background()
	id, err := srv.SaveCheckpoint(ctx, "")
	assert.Nil(t, err)
	assert.NotEmpty(t, id)

	named, err := srv.SaveCheckpoint(ctx, "run-a")
	assert.Nil(t, err)
	assert.Equal(t, "run-a", named)

	ids, err := srv.Checkpoints(ctx)
	assert.Nil(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "run-a")

	assert.Nil(t, srv.DeleteCheckpoint(ctx, "run-a"))
	ids, err = srv.Checkpoints(ctx)
	assert.Nil(t, err)
	assert.Equal(t, []string{id}, ids)
}

func TestService_TruncateCheckpoints(t *testing.T) {
	srv, err := cyclor.New(researchDefinition(t), cyclor.WithLoopN(1))
	assert.Nil(t, err)

	ctx := context.Background()
	for _, id := range []string{"run-a", "run-b", "run-c"} {
		_, err = srv.SaveCheckpoint(ctx, id)
		assert.Nil(t, err)
	}

	assert.Nil(t, srv.TruncateCheckpoints(ctx, 1))
	ids, err := srv.Checkpoints(ctx)
	assert.Nil(t, err)
	assert.Equal(t, []string{"run-c"}, ids)

	assert.Nil(t, srv.TruncateCheckpoints(ctx, 5))
	ids, err = srv.Checkpoints(ctx)
	assert.Nil(t, err)
	assert.Equal(t, []string{"run-c"}, ids)
}

func TestService_ResumeCheckpoint(t *testing.T) {
	store := cmemory.New()
	snapshot := state.New()
	snapshot.LoopIdx = 1
	snapshot.StepIdx[0] = 1
	snapshot.LoopPrevOut[0] = map[string]interface{}{"draft": "draft-out"}
	zero := 0
	snapshot.LoopN = &zero
	assert.Nil(t, store.Save(context.Background(), "run-a", snapshot))

	srv, err := cyclor.New(researchDefinition(t), cyclor.WithCheckpointDAO(store))
	assert.Nil(t, err)
	assert.Nil(t, srv.ResumeCheckpoint(context.Background(), "run-a"))

	err = srv.Run(context.Background())
	assert.Nil(t, err)

	restored := srv.Engine().Dump()
	assert.Equal(t, 3, restored.StepIdx[0])
	assert.Equal(t, "draft-out", restored.LoopPrevOut[0]["draft"])
}

func TestService_ResumeRehydratesTypedOutputs(t *testing.T) {
	config := cyclor.DefaultConfig()
	config.CheckpointURL = t.TempDir()
	types := extension.NewTypes().Register("review", reviewOutput{})

	source, err := cyclor.New(researchDefinition(t),
		cyclor.WithConfig(config),
		cyclor.WithLoopN(1),
		cyclor.WithExtensionTypes(types))
	assert.Nil(t, err)
	assert.Nil(t, source.Run(context.Background()))

	ctx := context.Background()
	id, err := source.SaveCheckpoint(ctx, "typed")
	assert.Nil(t, err)

	replicaConfig := cyclor.DefaultConfig()
	replicaConfig.CheckpointURL = config.CheckpointURL
	replica, err := cyclor.New(researchDefinition(t),
		cyclor.WithConfig(replicaConfig),
		cyclor.WithExtensionTypes(types))
	assert.Nil(t, err)
	assert.Nil(t, replica.ResumeCheckpoint(ctx, id))

	restored := replica.Engine().Dump()
	assert.Equal(t, reviewOutput{Verdict: "pass", Score: 9}, restored.LoopPrevOut[0]["review"])
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	config := cyclor.DefaultConfig()
	config.Engine.Workers = 0
	_, err := cyclor.New(researchDefinition(t), cyclor.WithConfig(config))
	assert.NotNil(t, err)

	_, err = cyclor.New(nil)
	assert.NotNil(t, err)
}
