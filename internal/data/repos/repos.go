package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/repos/attempt"
	"github.com/yungbote/optocase-backend/internal/data/repos/clinical"
	"github.com/yungbote/optocase-backend/internal/data/repos/user"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = user.UserTokenRepo

type CaseRepo = clinical.CaseRepo
type PatientRepo = clinical.PatientRepo
type AppointmentRepo = clinical.AppointmentRepo
type CaseHistoryRepo = clinical.CaseHistoryRepo
type ExamSectionRepo = clinical.ExamSectionRepo
type PerformedTestRepo = clinical.PerformedTestRepo
type ImagingStudyRepo = clinical.ImagingStudyRepo
type AssessmentPlanRepo = clinical.AssessmentPlanRepo

type CaseAttemptRepo = attempt.CaseAttemptRepo
type StudentNoteRepo = attempt.StudentNoteRepo
type InterpretationRepo = attempt.InterpretationRepo

type AttemptSummary = attempt.AttemptSummary
type CaseProgressRow = attempt.CaseProgressRow

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return user.NewUserTokenRepo(db, baseLog)
}

func NewCaseRepo(db *gorm.DB, baseLog *logger.Logger) CaseRepo {
	return clinical.NewCaseRepo(db, baseLog)
}
func NewPatientRepo(db *gorm.DB, baseLog *logger.Logger) PatientRepo {
	return clinical.NewPatientRepo(db, baseLog)
}
func NewAppointmentRepo(db *gorm.DB, baseLog *logger.Logger) AppointmentRepo {
	return clinical.NewAppointmentRepo(db, baseLog)
}
func NewCaseHistoryRepo(db *gorm.DB, baseLog *logger.Logger) CaseHistoryRepo {
	return clinical.NewCaseHistoryRepo(db, baseLog)
}
func NewExamSectionRepo(db *gorm.DB, baseLog *logger.Logger) ExamSectionRepo {
	return clinical.NewExamSectionRepo(db, baseLog)
}
func NewPerformedTestRepo(db *gorm.DB, baseLog *logger.Logger) PerformedTestRepo {
	return clinical.NewPerformedTestRepo(db, baseLog)
}
func NewImagingStudyRepo(db *gorm.DB, baseLog *logger.Logger) ImagingStudyRepo {
	return clinical.NewImagingStudyRepo(db, baseLog)
}
func NewAssessmentPlanRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentPlanRepo {
	return clinical.NewAssessmentPlanRepo(db, baseLog)
}

func NewCaseAttemptRepo(db *gorm.DB, baseLog *logger.Logger) CaseAttemptRepo {
	return attempt.NewCaseAttemptRepo(db, baseLog)
}
func NewStudentNoteRepo(db *gorm.DB, baseLog *logger.Logger) StudentNoteRepo {
	return attempt.NewStudentNoteRepo(db, baseLog)
}
func NewInterpretationRepo(db *gorm.DB, baseLog *logger.Logger) InterpretationRepo {
	return attempt.NewInterpretationRepo(db, baseLog)
}
