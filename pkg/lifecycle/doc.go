// Package lifecycle provides the run state machine shared by graph runners.
//
// A run moves through Stopped, Starting, Running, Stopping and Crashed.
// The manager also counts the worker goroutines of a run so that other
// components, such as the command arbiter, can tell when every worker has
// finished.
//
// # Usage
//
//	manager := lifecycle.NewManager(logger, eventEmitter)
//
//	if err := manager.TransitionTo(lifecycle.StateStarting, "run requested"); err != nil {
//	    return err
//	}
//
//	manager.AddWorker()
//	go func() {
//	    defer manager.WorkerDone()
//	    _ = root.Run()
//	}()
//
//	if err := manager.WaitWithTimeout(30 * time.Second); err != nil {
//	    return ErrShutdownTimeout
//	}
//
// # State Machine
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Stopping, Crashed
//   - Running -> Stopping, Crashed
//   - Stopping -> Stopped, Crashed
//   - Crashed -> Starting
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
