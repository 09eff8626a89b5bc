package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/repos"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type Repos struct {
	User      repos.UserRepo
	UserToken repos.UserTokenRepo

	Case           repos.CaseRepo
	Patient        repos.PatientRepo
	Appointment    repos.AppointmentRepo
	CaseHistory    repos.CaseHistoryRepo
	ExamSection    repos.ExamSectionRepo
	PerformedTest  repos.PerformedTestRepo
	ImagingStudy   repos.ImagingStudyRepo
	AssessmentPlan repos.AssessmentPlanRepo

	CaseAttempt    repos.CaseAttemptRepo
	StudentNote    repos.StudentNoteRepo
	Interpretation repos.InterpretationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:      repos.NewUserRepo(db, log),
		UserToken: repos.NewUserTokenRepo(db, log),

		Case:           repos.NewCaseRepo(db, log),
		Patient:        repos.NewPatientRepo(db, log),
		Appointment:    repos.NewAppointmentRepo(db, log),
		CaseHistory:    repos.NewCaseHistoryRepo(db, log),
		ExamSection:    repos.NewExamSectionRepo(db, log),
		PerformedTest:  repos.NewPerformedTestRepo(db, log),
		ImagingStudy:   repos.NewImagingStudyRepo(db, log),
		AssessmentPlan: repos.NewAssessmentPlanRepo(db, log),

		CaseAttempt:    repos.NewCaseAttemptRepo(db, log),
		StudentNote:    repos.NewStudentNoteRepo(db, log),
		Interpretation: repos.NewInterpretationRepo(db, log),
	}
}
