// Package cyclor provides a generic, resumable loop execution engine.
//
// A loop type declares a fixed, ordered sequence of named steps; the engine
// drives any number of independent loop instances through that sequence with
// per-step-name concurrency gates, step/time budget termination,
// skip/withdraw/fatal error recovery and atomic checkpointing.
//
// End-users typically interact with the engine via the high-level Service
// façade exposed by the root package:
//
//	def := loop.New("research").
//		MustDefine("propose", propose).
//		MustDefine("implement", implement).
//		MustDefine("record", record)
//	srv, _ := cyclor.New(def, cyclor.WithLoopN(8))
//	_ = srv.Run(ctx)
//	id, _ := srv.SaveCheckpoint(ctx, "")
//
// Lower-level building blocks live in the engine, model/loop, policy and
// runtime sub-packages.
package cyclor
