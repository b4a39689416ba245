/*
Package servers implements the HTTP server hosting the split-session API.

The server wraps a route handler (normally sessionhandler.Handler) in a chi
router with slog access logging, and adds the operational endpoints:

  - GET /livez - always 200 while the process serves requests
  - GET /readyz - 200 unless the server is drained or the session store is unavailable
  - GET /drain - mark the server not ready so load balancers stop routing to it
  - GET /undrain - mark the server ready again

With EnablePprof the pprof API is mounted under /debug. When MetricsAddr is set
a separate listener exposes Prometheus metrics at /metrics.

# Lifecycle

	srv, err := servers.New(cfg, handler, store)
	if err != nil {
		return err
	}
	srv.RunInBackground()
	<-exit
	srv.Shutdown()

Shutdown waits up to GracefulShutdownDuration for in-flight requests.
*/
package servers
