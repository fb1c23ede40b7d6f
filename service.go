package cyclor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/viant/cyclor/engine"
	"github.com/viant/cyclor/extension"
	"github.com/viant/cyclor/model/loop"
	"github.com/viant/cyclor/policy"
	"github.com/viant/cyclor/runtime/state"
	"github.com/viant/cyclor/runtime/timer"
	"github.com/viant/cyclor/service/dao"
	cfs "github.com/viant/cyclor/service/dao/checkpoint/fs"
	cmemory "github.com/viant/cyclor/service/dao/checkpoint/memory"
	"github.com/viant/cyclor/tracker"
)

// Service is the high-level façade: it wires a loop definition, engine
// configuration, checkpoint storage and observability collaborators
// together.
type Service struct {
	config      *Config
	def         *loop.Definition
	engine      *engine.Engine
	policy      *policy.Policy
	timer       timer.Timer
	types       *extension.Types
	trackers    []tracker.Tracker
	checkpoints dao.Service[string, state.Snapshot]
	progressOut io.Writer
}

// New creates a service driving the supplied loop definition.
func New(def *loop.Definition, options ...Option) (*Service, error) {
	s := &Service{config: DefaultConfig()}
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if err := s.init(def); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init(def *loop.Definition) error {
	if s.timer == nil {
		if budget := s.config.timeBudget(); budget > 0 {
			s.timer = timer.New(budget)
		}
	}
	if s.checkpoints == nil {
		if s.config.CheckpointURL != "" {
			store, err := cfs.New(s.config.CheckpointURL)
			if err != nil {
				return fmt.Errorf("failed to init checkpoint store: %w", err)
			}
			s.checkpoints = store
		} else {
			s.checkpoints = cmemory.New()
		}
	}

	opts := []engine.Option{
		engine.WithConfig(s.config.Engine),
		engine.WithGateLimits(s.config.Gates),
		engine.WithPolicy(s.policy),
		engine.WithTracker(s.trackers...),
		engine.WithProgressWriter(s.progressOut),
	}
	if s.config.LoopN != nil {
		opts = append(opts, engine.WithLoopN(*s.config.LoopN))
	}
	if s.config.StepN != nil {
		opts = append(opts, engine.WithStepN(*s.config.StepN))
	}
	if s.timer != nil {
		opts = append(opts, engine.WithTimer(s.timer))
	}
	if s.types != nil {
		opts = append(opts, engine.WithTypes(s.types))
	}

	anEngine, err := engine.New(def, opts...)
	if err != nil {
		return err
	}
	s.def = def
	s.engine = anEngine
	return nil
}

// Engine exposes the underlying driver.
func (s *Service) Engine() *engine.Engine {
	return s.engine
}

// Definition returns the loop definition the service drives.
func (s *Service) Definition() *loop.Definition {
	return s.def
}

// Run starts the wall-clock budget, if any, and drives the engine until
// completion, clean termination or fatal error.
func (s *Service) Run(ctx context.Context) error {
	if wallclock, ok := s.timer.(*timer.Wallclock); ok {
		wallclock.Start()
	}
	return s.engine.Start(ctx)
}

// SaveCheckpoint dumps the engine state under id; an empty id allocates a
// fresh one. The assigned id is returned.
func (s *Service) SaveCheckpoint(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}
	if err := s.checkpoints.Save(ctx, id, s.engine.Dump()); err != nil {
		return "", err
	}
	return id, nil
}

// ResumeCheckpoint loads the snapshot stored under id into the engine; a
// subsequent Run resumes the unfinished loop instances.
func (s *Service) ResumeCheckpoint(ctx context.Context, id string) error {
	snapshot, err := s.checkpoints.Load(ctx, id)
	if err != nil {
		return err
	}
	return s.engine.Load(snapshot)
}

// Checkpoints lists the stored checkpoint ids in lexical order.
func (s *Service) Checkpoints(ctx context.Context) ([]string, error) {
	ids, err := s.checkpoints.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteCheckpoint removes the checkpoint stored under id.
func (s *Service) DeleteCheckpoint(ctx context.Context, id string) error {
	return s.checkpoints.Delete(ctx, id)
}

// TruncateCheckpoints keeps the lexically newest keep checkpoints and
// removes the rest; missing ones are ignored.
func (s *Service) TruncateCheckpoints(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	ids, err := s.Checkpoints(ctx)
	if err != nil {
		return err
	}
	if len(ids) <= keep {
		return nil
	}
	for _, id := range ids[:len(ids)-keep] {
		if err := s.checkpoints.Delete(ctx, id); err != nil && !errors.Is(err, dao.ErrNotFound) {
			return err
		}
	}
	return nil
}
