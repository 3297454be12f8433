package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskpulse/domain"
)

const (
	createTaskMaxSize = 1 << 20

	// immediateNotifyWindow triggers an in-request reminder for tasks
	// created close to (or already past) their due date.
	immediateNotifyWindow = 24 * time.Hour
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, notifier Notifier, b Broker, logger *log.Logger) {
	e.GET("/api/categories", getCategories(store))
	e.GET("/api/tasks", getTasks(store, logger))
	e.POST("/api/tasks", createTask(store, notifier, b, logger))
	e.POST("/api/tasks/:id/complete", completeTask(store, b, logger))
	e.GET("/api/updates", streamUpdates(b))
	e.GET("/healthz", healthz())
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
}

type statusResponse struct {
	Status string       `json:"status"`
	Task   *domain.Task `json:"task,omitempty"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getCategories(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		cats, err := store.Categories(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, cats)
	}
}

func getTasks(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		fetchStart := time.Now()
		tasks, fetchErr := store.ListTasks(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasks)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func createTask(store Storage, notifier Notifier, b Broker, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		lr := io.LimitReader(c.Request().Body, createTaskMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req createTaskRequest
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		due, err := domain.ParseDueDate(req.DueDate)
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid due date")
		}
		task, err := domain.NewTask(req.Title, req.Description, req.Category, req.Priority, due)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}

		ctx := c.Request().Context()
		created, err := store.CreateTask(ctx, task)
		if err != nil {
			// The in-memory state holds the task; only durability is uncertain.
			logger.WithError(err).Warnf("api: task %d created but not persisted", created.ID)
		}

		b.Publish(domain.EventNewTask, created)

		if created.DueWithin(time.Now(), immediateNotifyWindow) && notifier.Notify(ctx, created) {
			if _, err := store.MarkNotified(ctx, created.ID); err != nil {
				logger.WithError(err).Errorf("api: mark task %d notified failed", created.ID)
			}
			created.NotificationSent = true
		}

		return c.JSON(http.StatusOK, statusResponse{Status: "success", Task: &created})
	}
}

func completeTask(store Storage, b Broker, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			return c.String(http.StatusBadRequest, "invalid task id")
		}

		found, err := store.CompleteTask(c.Request().Context(), id)
		if err != nil {
			logger.WithError(err).Warnf("api: task %d completed but not persisted", id)
		}
		if !found {
			return c.JSON(http.StatusNotFound, statusResponse{Status: "not_found"})
		}

		b.Publish(domain.EventTaskCompleted, map[string]int{"task_id": id})
		return c.JSON(http.StatusOK, statusResponse{Status: "success"})
	}
}
