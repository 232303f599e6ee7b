// Package workgrid provides a data-parallel kernel scheduler together with a
// layer graph executor and a kernel test harness.
//
// A kernel is executed over an iteration window; the scheduler splits the
// window along one axis into disjoint partitions (STATIC or DYNAMIC) and runs
// them on a worker pool. End-users typically interact with the engine via the
// Service facade exposed by the root package:
//
//	srv, _ := workgrid.New()
//	g, _ := srv.LoadGraph(ctx, "graph.yaml")
//	result, _ := srv.Executor().Execute(ctx, g, nil)
//	_ = srv.Shutdown(ctx)
package workgrid
