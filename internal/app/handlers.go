package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/optocase-backend/internal/http/handlers"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/realtime"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Auth        *httpH.AuthHandler
	User        *httpH.UserHandler
	Case        *httpH.CaseHandler
	Attempt     *httpH.AttemptHandler
	StudentWork *httpH.StudentWorkHandler
	Realtime    *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, serviceset Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(db),
		Auth:        httpH.NewAuthHandler(log, serviceset.Auth),
		User:        httpH.NewUserHandler(log, serviceset.User),
		Case:        httpH.NewCaseHandler(log, serviceset.Case, serviceset.Imaging),
		Attempt:     httpH.NewAttemptHandler(log, serviceset.Attempt),
		StudentWork: httpH.NewStudentWorkHandler(log, serviceset.StudentWork),
		Realtime:    httpH.NewRealtimeHandler(log, sseHub, serviceset.Case),
	}
}
