// Package shutdown runs cleanup hooks when mulligan-cli exits.
//
// Hooks run exactly once, in reverse order of registration, either when
// Shutdown is called on a normal exit or after SIGINT/SIGTERM:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnShutdown("token store", store.Close)
//	ctx, stop := h.WithSignals(context.Background())
//	defer stop()
//	defer h.Shutdown()
package shutdown
