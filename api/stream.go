package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

// heartbeatInterval spaces SSE comment frames that keep intermediaries from
// timing out an idle stream and surface dead connections as write errors.
const heartbeatInterval = 25 * time.Second

func streamUpdates(b Broker) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		c.Response().WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx := c.Request().Context()
		sub := b.Subscribe()
		defer b.Unsubscribe(sub)

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-sub.Events():
				if !ok {
					// Dropped by the broker after the queue overflowed.
					return nil
				}
				data, err := sonic.Marshal(ev)
				if err != nil {
					c.Logger().Error(err)
					continue
				}
				if _, err := c.Response().Write([]byte("data: ")); err != nil {
					return nil
				}
				if _, err := c.Response().Write(data); err != nil {
					return nil
				}
				if _, err := c.Response().Write([]byte("\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			case <-heartbeat.C:
				if _, err := c.Response().Write([]byte(": keep-alive\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			}
		}
	}
}
