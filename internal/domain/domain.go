// Package domain re-exports every persisted model under one flat namespace
// so repos and services can refer to types.X without caring which
// subpackage owns the table.
package domain

import (
	"github.com/yungbote/optocase-backend/internal/domain/attempt"
	"github.com/yungbote/optocase-backend/internal/domain/clinical"
	"github.com/yungbote/optocase-backend/internal/domain/user"
)

// Identity
type (
	User      = user.User
	Role      = user.Role
	UserToken = user.UserToken
)

const (
	RoleStudent   = user.RoleStudent
	RoleProfessor = user.RoleProfessor
	RoleAdmin     = user.RoleAdmin
)

// Authored case content
type (
	Case                = clinical.Case
	CaseStatus          = clinical.CaseStatus
	Difficulty          = clinical.Difficulty
	Patient             = clinical.Patient
	Appointment         = clinical.Appointment
	CaseHistory         = clinical.CaseHistory
	ExamSection         = clinical.ExamSection
	PerformedTest       = clinical.PerformedTest
	Eye                 = clinical.Eye
	ImagingStudy        = clinical.ImagingStudy
	AssessmentPlanEntry = clinical.AssessmentPlanEntry
)

const (
	CaseDraft     = clinical.CaseDraft
	CasePublished = clinical.CasePublished
	CaseArchived  = clinical.CaseArchived

	DifficultyIntroductory = clinical.DifficultyIntroductory
	DifficultyIntermediate = clinical.DifficultyIntermediate
	DifficultyAdvanced     = clinical.DifficultyAdvanced

	EyeOD = clinical.EyeOD
	EyeOS = clinical.EyeOS
	EyeOU = clinical.EyeOU
)

// Student work
type (
	CaseAttempt    = attempt.CaseAttempt
	AttemptStatus  = attempt.Status
	AttemptSection = attempt.Section
	StudentNote    = attempt.StudentNote
	Interpretation = attempt.Interpretation
)

const (
	AttemptInProgress = attempt.StatusInProgress
	AttemptCompleted  = attempt.StatusCompleted

	SectionHistory     = attempt.SectionHistory
	SectionExam        = attempt.SectionExam
	SectionAssessment  = attempt.SectionAssessment
	SectionPlan        = attempt.SectionPlan
	SectionAttachments = attempt.SectionAttachments

	DefaultLastPage = attempt.DefaultLastPage
)

// ParseSection and SectionColumn re-exported so callers outside the attempt
// package validate section names against the same set the storage mapping
// uses.
var (
	ParseSection  = attempt.ParseSection
	SectionColumn = attempt.SectionColumn
)
