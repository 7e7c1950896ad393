// Package health serves liveness and readiness probes.
//
// Readiness runs every named CheckFunc in parallel under a shared timeout and
// answers 503 when any of them fails. Both probes answer with a JSON
// Response:
//
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//		"postgres": db.Healthcheck(pool),
//		"redis":    redis.Healthcheck(client),
//	}))
package health
