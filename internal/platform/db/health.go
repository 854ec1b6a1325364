package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const healthPingTimeout = 5 * time.Second

// PoolState is a snapshot of the connection pool for the health endpoint.
type PoolState struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

// HealthStatus is the body of the database health endpoint.
type HealthStatus struct {
	Status      string    `json:"status"`
	PingLatency string    `json:"ping_latency,omitempty"`
	Error       string    `json:"error,omitempty"`
	Pool        PoolState `json:"pool"`
}

func poolState(pool *pgxpool.Pool) PoolState {
	stat := pool.Stat()
	return PoolState{
		TotalConns:    stat.TotalConns(),
		IdleConns:     stat.IdleConns(),
		AcquiredConns: stat.AcquiredConns(),
		MaxConns:      stat.MaxConns(),
	}
}

// HealthHandler pings the database and reports pool state. It returns 503 when
// the ping fails so load balancers can take the instance out of rotation.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		start := time.Now()
		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, HealthStatus{
				Status: "unhealthy",
				Error:  err.Error(),
				Pool:   poolState(pool),
			})
		}

		return c.JSON(http.StatusOK, HealthStatus{
			Status:      "healthy",
			PingLatency: time.Since(start).String(),
			Pool:        poolState(pool),
		})
	}
}
