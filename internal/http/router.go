package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	types "github.com/yungbote/optocase-backend/internal/domain"
	httpH "github.com/yungbote/optocase-backend/internal/http/handlers"
	httpMW "github.com/yungbote/optocase-backend/internal/http/middleware"
	"github.com/yungbote/optocase-backend/internal/observability"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler      *httpH.HealthHandler
	AuthHandler        *httpH.AuthHandler
	UserHandler        *httpH.UserHandler
	CaseHandler        *httpH.CaseHandler
	AttemptHandler     *httpH.AttemptHandler
	StudentWorkHandler *httpH.StudentWorkHandler
	RealtimeHandler    *httpH.RealtimeHandler

	Metrics *observability.Metrics

	// UploadsDir, when set, is served at /uploads for the local storage
	// provider. Cloud providers hand out their own URLs and leave it empty.
	UploadsDir string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.CORS())
	if cfg.Metrics != nil {
		r.Use(httpMW.Metrics(cfg.Metrics))
	}
	if observability.TracingEnabled() {
		r.Use(otelgin.Middleware("optocase-backend"))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Healthz)
		r.GET("/readyz", cfg.HealthHandler.Readyz)
	}

	if cfg.UploadsDir != "" {
		r.Static("/uploads", cfg.UploadsDir)
	}

	api := r.Group("/api/v1")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/register", cfg.AuthHandler.Register)
			api.POST("/auth/login", cfg.AuthHandler.Login)
			api.POST("/auth/refresh", cfg.AuthHandler.Refresh)
			api.POST("/auth/logout", cfg.AuthHandler.Logout)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.GET("/auth/me", cfg.AuthHandler.Me)
		}

		if cfg.UserHandler != nil {
			protected.PUT("/users/me", cfg.UserHandler.UpdateMe)
			protected.POST("/users/me/avatar", cfg.UserHandler.UploadAvatar)
			protected.PUT("/users/me/password", cfg.UserHandler.ChangePassword)
		}

		// Attempts
		if cfg.AttemptHandler != nil {
			protected.POST("/case-attempts/ensure", cfg.AttemptHandler.Ensure)
			protected.GET("/case-attempts/by-case/:caseId", cfg.AttemptHandler.GetByCase)
			protected.PUT("/case-attempts/:attemptId/save", cfg.AttemptHandler.Save)
			protected.POST("/case-attempts/:attemptId/complete", cfg.AttemptHandler.Complete)
			protected.GET("/my-progress", cfg.AttemptHandler.MyProgress)
		}

		// Student notes + imaging interpretations
		if cfg.StudentWorkHandler != nil {
			protected.PUT("/case-attempts/:attemptId/notes", cfg.StudentWorkHandler.SaveNote)
			protected.GET("/case-attempts/:attemptId/notes", cfg.StudentWorkHandler.ListNotes)
			protected.PUT("/case-attempts/:attemptId/interpretations", cfg.StudentWorkHandler.SaveInterpretation)
			protected.GET("/case-attempts/:attemptId/interpretations", cfg.StudentWorkHandler.ListInterpretations)
		}

		// Case browsing (any authenticated role). Get enforces its own
		// visibility: published cases are world-readable, drafts are not.
		if cfg.CaseHandler != nil {
			protected.GET("/cases/catalog", cfg.CaseHandler.Catalog)
			protected.GET("/cases/:caseId", cfg.CaseHandler.Get)
			protected.GET("/cases/:caseId/workbook", cfg.CaseHandler.Workbook)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/events/stream", cfg.RealtimeHandler.Stream)
		}
	}

	// Authoring surface, professors and admins only.
	authoring := protected.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			authoring.Use(cfg.AuthMiddleware.RequireRole(string(types.RoleProfessor), string(types.RoleAdmin)))
		}

		if cfg.CaseHandler != nil {
			authoring.POST("/cases", cfg.CaseHandler.Create)
			authoring.GET("/cases", cfg.CaseHandler.List)
			authoring.PUT("/cases/:caseId", cfg.CaseHandler.Update)
			authoring.DELETE("/cases/:caseId", cfg.CaseHandler.Delete)
			authoring.POST("/cases/:caseId/publish", cfg.CaseHandler.Publish)
			authoring.POST("/cases/:caseId/unpublish", cfg.CaseHandler.Unpublish)
			authoring.POST("/cases/:caseId/archive", cfg.CaseHandler.Archive)

			authoring.PUT("/cases/:caseId/patient", cfg.CaseHandler.UpsertPatient)
			authoring.PUT("/cases/:caseId/appointment", cfg.CaseHandler.UpsertAppointment)
			authoring.PUT("/cases/:caseId/history", cfg.CaseHandler.UpsertHistory)

			authoring.GET("/cases/:caseId/exam-sections", cfg.CaseHandler.ListExamSections)
			authoring.POST("/cases/:caseId/exam-sections", cfg.CaseHandler.CreateExamSection)
			authoring.PUT("/cases/:caseId/exam-sections/:sectionId", cfg.CaseHandler.UpdateExamSection)
			authoring.DELETE("/cases/:caseId/exam-sections/:sectionId", cfg.CaseHandler.DeleteExamSection)

			authoring.GET("/cases/:caseId/performed-tests", cfg.CaseHandler.ListPerformedTests)
			authoring.POST("/cases/:caseId/performed-tests", cfg.CaseHandler.CreatePerformedTest)
			authoring.PUT("/cases/:caseId/performed-tests/:testId", cfg.CaseHandler.UpdatePerformedTest)
			authoring.DELETE("/cases/:caseId/performed-tests/:testId", cfg.CaseHandler.DeletePerformedTest)

			authoring.GET("/cases/:caseId/assessment-entries", cfg.CaseHandler.ListAssessmentEntries)
			authoring.POST("/cases/:caseId/assessment-entries", cfg.CaseHandler.CreateAssessmentEntry)
			authoring.PUT("/cases/:caseId/assessment-entries/:entryId", cfg.CaseHandler.UpdateAssessmentEntry)
			authoring.DELETE("/cases/:caseId/assessment-entries/:entryId", cfg.CaseHandler.DeleteAssessmentEntry)

			authoring.POST("/cases/:caseId/imaging", cfg.CaseHandler.UploadImaging)
			authoring.GET("/cases/:caseId/imaging", cfg.CaseHandler.ListImaging)
			authoring.DELETE("/cases/:caseId/imaging/:imagingId", cfg.CaseHandler.DeleteImaging)
		}

		if cfg.AttemptHandler != nil {
			authoring.GET("/cases/:caseId/progress", cfg.AttemptHandler.CaseProgress)
		}
	}

	return r
}
