package app

import (
	apihttp "github.com/yungbote/optocase-backend/internal/http"
	"github.com/yungbote/optocase-backend/internal/observability"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, handlerset Handlers, middleware Middleware, metrics *observability.Metrics, uploadsDir string) *apihttp.Server {
	return apihttp.NewServer(apihttp.RouterConfig{
		Log: log,

		AuthMiddleware: middleware.Auth,

		HealthHandler:      handlerset.Health,
		AuthHandler:        handlerset.Auth,
		UserHandler:        handlerset.User,
		CaseHandler:        handlerset.Case,
		AttemptHandler:     handlerset.Attempt,
		StudentWorkHandler: handlerset.StudentWork,
		RealtimeHandler:    handlerset.Realtime,

		Metrics:    metrics,
		UploadsDir: uploadsDir,
	})
}
