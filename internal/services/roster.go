package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/mail"
	"strconv"
	"strings"

	"github.com/campushub/backend/internal/models"
	"github.com/campushub/backend/pkg/utils"
	"gorm.io/gorm"
)

// RosterRow is one registrar record. The role column may hold a
// canonical role name or a legacy numeric code 1-4; NormalizeRole
// handles both.
type RosterRow struct {
	StudentID string
	Email     string
	FirstName string
	LastName  string
	Course    string
	YearLevel int
	Role      models.Role
}

type RosterResult struct {
	Created int
	Updated int
}

var rosterColumns = []string{"studentID", "email", "firstName", "lastName", "course", "yearLevel", "role"}

// ParseRoster reads a registrar CSV. The header row is required and
// must match the canonical column order.
func ParseRoster(r io.Reader) ([]RosterRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading roster header: %w", err)
	}
	if err := validateRosterHeader(header); err != nil {
		return nil, err
	}

	var rows []RosterRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading roster line %d: %w", line+1, err)
		}
		line++

		row, err := parseRosterRecord(record)
		if err != nil {
			return nil, fmt.Errorf("roster line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func validateRosterHeader(header []string) error {
	if len(header) != len(rosterColumns) {
		return fmt.Errorf("expected %d columns, got %d", len(rosterColumns), len(header))
	}
	for i, want := range rosterColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return fmt.Errorf("expected column %q at position %d, got %q", want, i+1, header[i])
		}
	}
	return nil
}

func parseRosterRecord(record []string) (RosterRow, error) {
	if len(record) != len(rosterColumns) {
		return RosterRow{}, fmt.Errorf("expected %d fields, got %d", len(rosterColumns), len(record))
	}

	row := RosterRow{
		StudentID: strings.TrimSpace(record[0]),
		Email:     strings.ToLower(strings.TrimSpace(record[1])),
		FirstName: strings.TrimSpace(record[2]),
		LastName:  strings.TrimSpace(record[3]),
		Course:    strings.TrimSpace(record[4]),
		Role:      NormalizeRole(record[6]),
	}

	if row.StudentID == "" {
		return RosterRow{}, fmt.Errorf("studentID is required")
	}
	if _, err := mail.ParseAddress(row.Email); err != nil {
		return RosterRow{}, fmt.Errorf("invalid email %q", record[1])
	}
	if row.FirstName == "" || row.LastName == "" {
		return RosterRow{}, fmt.Errorf("firstName and lastName are required")
	}

	if year := strings.TrimSpace(record[5]); year != "" {
		parsed, err := strconv.Atoi(year)
		if err != nil {
			return RosterRow{}, fmt.Errorf("invalid yearLevel %q", year)
		}
		row.YearLevel = parsed
	}

	return row, nil
}

// ImportRoster upserts users keyed on studentID. New users get a
// generated password hashed with bcrypt; existing users keep their
// password and get profile and role refreshed from the roster.
func ImportRoster(db *gorm.DB, rows []RosterRow, defaultPassword string) (RosterResult, error) {
	var result RosterResult

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			var existing models.User
			err := tx.First(&existing, "student_id = ?", row.StudentID).Error
			switch {
			case err == gorm.ErrRecordNotFound:
				hash, hashErr := utils.HashPassword(defaultPassword)
				if hashErr != nil {
					return hashErr
				}
				user := models.User{
					StudentID:    row.StudentID,
					Email:        row.Email,
					PasswordHash: hash,
					FirstName:    row.FirstName,
					LastName:     row.LastName,
					Role:         row.Role,
				}
				applyRosterOptional(&user, row)
				if createErr := tx.Create(&user).Error; createErr != nil {
					return fmt.Errorf("creating %s: %w", row.StudentID, createErr)
				}
				result.Created++
			case err != nil:
				return err
			default:
				existing.Email = row.Email
				existing.FirstName = row.FirstName
				existing.LastName = row.LastName
				existing.Role = row.Role
				applyRosterOptional(&existing, row)
				if saveErr := tx.Save(&existing).Error; saveErr != nil {
					return fmt.Errorf("updating %s: %w", row.StudentID, saveErr)
				}
				result.Updated++
			}
		}
		return nil
	})

	return result, err
}

func applyRosterOptional(user *models.User, row RosterRow) {
	if row.Course != "" {
		course := row.Course
		user.Course = &course
	}
	if row.YearLevel > 0 {
		year := row.YearLevel
		user.YearLevel = &year
	}
}
