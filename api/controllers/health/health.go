package health

import (
	"context"
	"net/http"
	"time"

	"github.com/resinart/storefront-api/api/responses"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Pinger is any dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check names a dependency probed by the readiness endpoint.
type Check struct {
	Name   string
	Pinger Pinger
}

func Live(env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// Ready pings every dependency and answers 503 when any of them fails.
func Ready(env string, logg *logger.Logger, checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", env)
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		status := map[string]string{}
		var failed []string
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			if err := check.Pinger.Ping(ctx); err != nil {
				status[check.Name] = "down"
				failed = append(failed, check.Name)
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "dependency", check.Name), "health.ready.dependency_down")
				}
				continue
			}
			status[check.Name] = "up"
		}
		if len(failed) > 0 {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(status)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
