package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/avatar"
	"github.com/yungbote/optocase-backend/internal/events"
	"github.com/yungbote/optocase-backend/internal/mail"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/realtime"
	"github.com/yungbote/optocase-backend/internal/realtime/bus"
	"github.com/yungbote/optocase-backend/internal/services"
	"github.com/yungbote/optocase-backend/internal/storage"
)

type Services struct {
	Avatar      services.AvatarService
	Auth        services.AuthService
	User        services.UserService
	Case        services.CaseService
	Imaging     services.ImagingService
	StudentWork services.StudentWorkService
	Attempt     services.AttemptService

	Publisher events.Publisher
	Mailer    mail.Mailer
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	reposet Repos,
	sseHub *realtime.SSEHub,
	sseBus bus.Bus,
	store storage.Provider,
) (Services, error) {
	log.Info("Wiring services...")

	// Multi-instance deployments publish through Redis and the forwarder
	// replays into each local hub; single-instance broadcasts directly.
	var emitter services.SSEEmitter
	if sseBus != nil {
		emitter = &services.RedisEmitter{Bus: sseBus}
	} else {
		emitter = &services.HubEmitter{Hub: sseHub}
	}

	attemptNotifier := services.NewAttemptNotifier(emitter)
	caseNotifier := services.NewCaseNotifier(emitter)
	userNotifier := services.NewUserNotifier(emitter)

	publisher, err := events.NewKafkaPublisher(log)
	if err != nil {
		return Services{}, fmt.Errorf("init event publisher: %w", err)
	}

	mailer, err := mail.NewFromEnv(log)
	if err != nil {
		return Services{}, fmt.Errorf("init mailer: %w", err)
	}

	renderer, err := avatar.NewRenderer(log)
	if err != nil {
		return Services{}, fmt.Errorf("init avatar renderer: %w", err)
	}
	avatarService := services.NewAvatarService(db, log, reposet.User, renderer, store, userNotifier)

	authService, err := services.NewAuthService(db, log, reposet.User, reposet.UserToken, avatarService, publisher, mailer)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	userService := services.NewUserService(db, log, reposet.User, reposet.UserToken, avatarService)

	caseService := services.NewCaseService(
		db, log,
		reposet.Case,
		reposet.Patient,
		reposet.Appointment,
		reposet.CaseHistory,
		reposet.ExamSection,
		reposet.PerformedTest,
		reposet.ImagingStudy,
		reposet.AssessmentPlan,
		reposet.CaseAttempt,
		caseNotifier,
		publisher,
	)

	imagingService := services.NewImagingService(db, log, reposet.Case, reposet.PerformedTest, reposet.ImagingStudy, store)

	studentWorkService := services.NewStudentWorkService(db, log, reposet.CaseAttempt, reposet.StudentNote, reposet.Interpretation, reposet.ImagingStudy)

	attemptService := services.NewAttemptService(db, log, reposet.Case, reposet.CaseAttempt, reposet.User, attemptNotifier, publisher, mailer)

	return Services{
		Avatar:      avatarService,
		Auth:        authService,
		User:        userService,
		Case:        caseService,
		Imaging:     imagingService,
		StudentWork: studentWorkService,
		Attempt:     attemptService,
		Publisher:   publisher,
		Mailer:      mailer,
	}, nil
}
