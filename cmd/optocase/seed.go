package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/db"
	types "github.com/yungbote/optocase-backend/internal/domain"
)

// seedFixture is the YAML shape the seed command consumes: a flat list of
// users followed by cases keyed to their author by username.
type seedFixture struct {
	Users []seedUser `yaml:"users"`
	Cases []seedCase `yaml:"cases"`
}

type seedUser struct {
	Email     string `yaml:"email"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
}

type seedCase struct {
	Owner      string   `yaml:"owner"`
	Title      string   `yaml:"title"`
	Summary    string   `yaml:"summary"`
	Difficulty string   `yaml:"difficulty"`
	Tags       []string `yaml:"tags"`
	Publish    bool     `yaml:"publish"`

	Patient     *seedPatient     `yaml:"patient"`
	Appointment *seedAppointment `yaml:"appointment"`
	History     *seedHistory     `yaml:"history"`

	ExamSections      []seedExamSection   `yaml:"examSections"`
	PerformedTests    []seedPerformedTest `yaml:"performedTests"`
	AssessmentEntries []seedAssessment    `yaml:"assessmentEntries"`
}

type seedPatient struct {
	FirstName   string            `yaml:"firstName"`
	LastName    string            `yaml:"lastName"`
	DateOfBirth string            `yaml:"dateOfBirth"`
	Sex         string            `yaml:"sex"`
	Race        string            `yaml:"race"`
	Occupation  string            `yaml:"occupation"`
	Insurance   string            `yaml:"insurance"`
	ReferredBy  string            `yaml:"referredBy"`
	Contact     map[string]string `yaml:"contact"`
}

type seedAppointment struct {
	OccurredOn     string `yaml:"occurredOn"`
	Reason         string `yaml:"reason"`
	ChiefComplaint string `yaml:"chiefComplaint"`
	Notes          string `yaml:"notes"`
}

type seedHistory struct {
	HPI            string         `yaml:"hpi"`
	MedicalHistory string         `yaml:"medicalHistory"`
	OcularHistory  string         `yaml:"ocularHistory"`
	FamilyHistory  string         `yaml:"familyHistory"`
	Medications    string         `yaml:"medications"`
	Allergies      string         `yaml:"allergies"`
	Social         map[string]any `yaml:"social"`
}

type seedExamSection struct {
	Section  string         `yaml:"section"`
	Findings map[string]any `yaml:"findings"`
}

type seedPerformedTest struct {
	Name  string `yaml:"name"`
	Eye   string `yaml:"eye"`
	Notes string `yaml:"notes"`
}

type seedAssessment struct {
	DiagnosisCode string `yaml:"diagnosisCode"`
	DiagnosisText string `yaml:"diagnosisText"`
	PlanText      string `yaml:"planText"`
}

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and cases from a YAML fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			log, err := newCLILogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read fixture: %w", err)
			}
			var fixture seedFixture
			if err := yaml.Unmarshal(data, &fixture); err != nil {
				return fmt.Errorf("parse fixture: %w", err)
			}

			pg, err := db.NewPostgresService(log)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			if err := pg.AutoMigrateAll(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			stats, err := applySeed(pg.DB().WithContext(cmd.Context()), &fixture)
			if err != nil {
				return err
			}
			fmt.Printf("%s seeded %d users (%d existing), %d cases (%d existing)\n",
				color.New(color.FgGreen).Sprint("✓"),
				stats.usersCreated, stats.usersSkipped,
				stats.casesCreated, stats.casesSkipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML fixture path (required)")
	return cmd
}

type seedStats struct {
	usersCreated int
	usersSkipped int
	casesCreated int
	casesSkipped int
}

// applySeed runs inside one transaction so a malformed fixture leaves the
// database untouched. Existing users (by email) and cases (by owner and
// title) are skipped rather than updated.
func applySeed(gdb *gorm.DB, fixture *seedFixture) (seedStats, error) {
	var stats seedStats
	err := gdb.Transaction(func(tx *gorm.DB) error {
		owners := make(map[string]uuid.UUID)

		for i, su := range fixture.Users {
			email := strings.ToLower(strings.TrimSpace(su.Email))
			username := strings.ToLower(strings.TrimSpace(su.Username))
			if email == "" || username == "" {
				return fmt.Errorf("users[%d]: email and username are required", i)
			}
			role := types.Role(strings.ToLower(strings.TrimSpace(su.Role)))
			if role == "" {
				role = types.RoleStudent
			}
			if !role.Valid() {
				return fmt.Errorf("users[%d]: invalid role %q", i, su.Role)
			}

			var existing types.User
			err := tx.Where("email = ?", email).First(&existing).Error
			switch {
			case err == nil:
				owners[username] = existing.ID
				stats.usersSkipped++
				continue
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("users[%d]: lookup: %w", i, err)
			}

			if su.Password == "" {
				return fmt.Errorf("users[%d]: password is required", i)
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("users[%d]: hash password: %w", i, err)
			}
			u := &types.User{
				Email:        email,
				Username:     username,
				PasswordHash: string(hash),
				Role:         role,
				FirstName:    strings.TrimSpace(su.FirstName),
				LastName:     strings.TrimSpace(su.LastName),
			}
			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("users[%d]: create: %w", i, err)
			}
			owners[username] = u.ID
			stats.usersCreated++
		}

		for i, sc := range fixture.Cases {
			if sc.Title == "" {
				return fmt.Errorf("cases[%d]: title is required", i)
			}
			ownerID, err := resolveOwner(tx, owners, sc.Owner)
			if err != nil {
				return fmt.Errorf("cases[%d]: %w", i, err)
			}

			var existing types.Case
			err = tx.Where("owner_id = ? AND title = ?", ownerID, sc.Title).First(&existing).Error
			switch {
			case err == nil:
				stats.casesSkipped++
				continue
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("cases[%d]: lookup: %w", i, err)
			}

			if err := createSeedCase(tx, ownerID, &sc); err != nil {
				return fmt.Errorf("cases[%d] %q: %w", i, sc.Title, err)
			}
			stats.casesCreated++
		}
		return nil
	})
	return stats, err
}

func resolveOwner(tx *gorm.DB, owners map[string]uuid.UUID, username string) (uuid.UUID, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return uuid.Nil, fmt.Errorf("owner is required")
	}
	if id, ok := owners[username]; ok {
		return id, nil
	}
	var u types.User
	if err := tx.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, fmt.Errorf("owner %q not found", username)
		}
		return uuid.Nil, fmt.Errorf("owner lookup: %w", err)
	}
	owners[username] = u.ID
	return u.ID, nil
}

func createSeedCase(tx *gorm.DB, ownerID uuid.UUID, sc *seedCase) error {
	tags, err := jsonValue(sc.Tags)
	if err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	c := &types.Case{
		OwnerID:    ownerID,
		Title:      sc.Title,
		Summary:    sc.Summary,
		Difficulty: types.Difficulty(sc.Difficulty),
		Status:     types.CaseDraft,
		Tags:       tags,
	}
	if sc.Publish {
		now := time.Now().UTC()
		c.Status = types.CasePublished
		c.PublishedAt = &now
	}
	if err := tx.Create(c).Error; err != nil {
		return fmt.Errorf("create case: %w", err)
	}

	if sc.Patient != nil {
		dob, err := dateValue(sc.Patient.DateOfBirth)
		if err != nil {
			return fmt.Errorf("patient dateOfBirth: %w", err)
		}
		contact, err := jsonValue(sc.Patient.Contact)
		if err != nil {
			return fmt.Errorf("patient contact: %w", err)
		}
		p := &types.Patient{
			CaseID:      c.ID,
			FirstName:   sc.Patient.FirstName,
			LastName:    sc.Patient.LastName,
			DateOfBirth: dob,
			Sex:         sc.Patient.Sex,
			Race:        sc.Patient.Race,
			Occupation:  sc.Patient.Occupation,
			Insurance:   sc.Patient.Insurance,
			ReferredBy:  sc.Patient.ReferredBy,
			Contact:     contact,
		}
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("create patient: %w", err)
		}
	}

	if sc.Appointment != nil {
		occurred, err := dateValue(sc.Appointment.OccurredOn)
		if err != nil {
			return fmt.Errorf("appointment occurredOn: %w", err)
		}
		a := &types.Appointment{
			CaseID:         c.ID,
			OccurredOn:     occurred,
			Reason:         sc.Appointment.Reason,
			ChiefComplaint: sc.Appointment.ChiefComplaint,
			Notes:          sc.Appointment.Notes,
		}
		if err := tx.Create(a).Error; err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
	}

	if sc.History != nil {
		social, err := jsonValue(sc.History.Social)
		if err != nil {
			return fmt.Errorf("history social: %w", err)
		}
		h := &types.CaseHistory{
			CaseID:         c.ID,
			HPI:            sc.History.HPI,
			MedicalHistory: sc.History.MedicalHistory,
			OcularHistory:  sc.History.OcularHistory,
			FamilyHistory:  sc.History.FamilyHistory,
			Medications:    sc.History.Medications,
			Allergies:      sc.History.Allergies,
			Social:         social,
		}
		if err := tx.Create(h).Error; err != nil {
			return fmt.Errorf("create history: %w", err)
		}
	}

	for j, es := range sc.ExamSections {
		if es.Section == "" {
			return fmt.Errorf("examSections[%d]: section is required", j)
		}
		findings, err := jsonValue(es.Findings)
		if err != nil {
			return fmt.Errorf("examSections[%d] findings: %w", j, err)
		}
		s := &types.ExamSection{
			CaseID:   c.ID,
			Section:  es.Section,
			Position: j,
			Findings: findings,
		}
		if err := tx.Create(s).Error; err != nil {
			return fmt.Errorf("create exam section %q: %w", es.Section, err)
		}
	}

	for j, pt := range sc.PerformedTests {
		if pt.Name == "" {
			return fmt.Errorf("performedTests[%d]: name is required", j)
		}
		t := &types.PerformedTest{
			CaseID:   c.ID,
			Name:     pt.Name,
			Eye:      types.Eye(strings.ToUpper(pt.Eye)),
			Notes:    pt.Notes,
			Position: j,
		}
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("create performed test %q: %w", pt.Name, err)
		}
	}

	for j, ae := range sc.AssessmentEntries {
		e := &types.AssessmentPlanEntry{
			CaseID:        c.ID,
			Position:      j,
			DiagnosisCode: ae.DiagnosisCode,
			DiagnosisText: ae.DiagnosisText,
			PlanText:      ae.PlanText,
		}
		if err := tx.Create(e).Error; err != nil {
			return fmt.Errorf("create assessment entry %d: %w", j, err)
		}
	}
	return nil
}

// jsonValue marshals fixture maps and slices into the JSON columns the
// models carry; nil input stays nil so columns default to SQL NULL.
func jsonValue(v any) (datatypes.JSON, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []string:
		if val == nil {
			return nil, nil
		}
	case map[string]string:
		if val == nil {
			return nil, nil
		}
	case map[string]any:
		if val == nil {
			return nil, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func dateValue(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("want YYYY-MM-DD: %w", err)
	}
	return &t, nil
}
