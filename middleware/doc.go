// Package middleware provides the handler.Middleware values the probe's
// HTTP mode runs every request through: request IDs, structured request
// logging, body size limits and Prometheus request metrics.
//
//	r := router.New[*router.Context]()
//	r.Use(
//		middleware.RequestID[*router.Context](),
//		middleware.LoggingWithLogger[*router.Context](log),
//		middleware.BodyLimitWithSize[*router.Context](4*middleware.MB),
//		middleware.Metrics[*router.Context](m),
//	)
//
// Middlewares that need to see the final status wrap the returned
// handler.Response, since handlers only describe the response and the router
// executes it afterwards.
package middleware
