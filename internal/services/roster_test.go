package services

import (
	"strings"
	"testing"

	"github.com/campushub/backend/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const rosterHeader = "studentID,email,firstName,lastName,course,yearLevel,role\n"

func openRosterTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func TestParseRoster(t *testing.T) {
	input := rosterHeader +
		"2023-00111,maria.santos@campus.edu,Maria,Santos,BS Computer Science,3,student\n" +
		"FAC-0042,a.reyes@campus.edu,Ana,Reyes,,,2\n" +
		"ADM-0007,dean@campus.edu,Jose,Cruz,,,admin\n"

	rows, err := ParseRoster(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parsing roster: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("row count = %d, want 3", len(rows))
	}

	first := rows[0]
	if first.StudentID != "2023-00111" || first.Email != "maria.santos@campus.edu" {
		t.Errorf("first row = %+v", first)
	}
	if first.Course != "BS Computer Science" || first.YearLevel != 3 || first.Role != models.RoleStudent {
		t.Errorf("first row details = %+v", first)
	}

	// legacy numeric role code
	if rows[1].Role != models.RoleTeacher {
		t.Errorf("legacy code 2 mapped to %s, want teacher", rows[1].Role)
	}
	if rows[2].Role != models.RoleAdmin {
		t.Errorf("third row role = %s, want admin", rows[2].Role)
	}
}

func TestParseRosterRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong header", "id,email,first,last,course,year,role\nx,y@z.edu,A,B,,,student\n"},
		{"missing column", "studentID,email,firstName,lastName,course,yearLevel\n"},
		{"bad email", rosterHeader + "2023-00111,not-an-email,Maria,Santos,,,student\n"},
		{"missing student id", rosterHeader + ",maria@campus.edu,Maria,Santos,,,student\n"},
		{"missing name", rosterHeader + "2023-00111,maria@campus.edu,,Santos,,,student\n"},
		{"bad year level", rosterHeader + "2023-00111,maria@campus.edu,Maria,Santos,,third,student\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRoster(strings.NewReader(tt.input)); err == nil {
				t.Error("expected a parse error")
			}
		})
	}
}

func TestParseRosterUnknownRoleDegradesToStudent(t *testing.T) {
	input := rosterHeader + "2023-00111,maria@campus.edu,Maria,Santos,,,chancellor\n"
	rows, err := ParseRoster(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parsing roster: %v", err)
	}
	if rows[0].Role != models.RoleStudent {
		t.Errorf("unknown role mapped to %s, want student", rows[0].Role)
	}
}

func TestImportRoster(t *testing.T) {
	db := openRosterTestDB(t)

	rows := []RosterRow{
		{StudentID: "2023-00111", Email: "maria@campus.edu", FirstName: "Maria", LastName: "Santos", Course: "BS CS", YearLevel: 3, Role: models.RoleStudent},
		{StudentID: "FAC-0042", Email: "ana@campus.edu", FirstName: "Ana", LastName: "Reyes", Role: models.RoleTeacher},
	}

	result, err := ImportRoster(db, rows, "changeme123")
	if err != nil {
		t.Fatalf("importing roster: %v", err)
	}
	if result.Created != 2 || result.Updated != 0 {
		t.Errorf("result = %+v, want 2 created", result)
	}

	var maria models.User
	if err := db.First(&maria, "student_id = ?", "2023-00111").Error; err != nil {
		t.Fatalf("loading imported user: %v", err)
	}
	if maria.Role != models.RoleStudent || maria.Course == nil || *maria.Course != "BS CS" {
		t.Errorf("imported user = %+v", maria)
	}
	if maria.PasswordHash == "" || maria.PasswordHash == "changeme123" {
		t.Error("imported password must be hashed")
	}

	// re-import with changes updates in place and keeps the password
	originalHash := maria.PasswordHash
	rows[0].Role = models.RoleModerator
	rows[0].Email = "maria.santos@campus.edu"

	result, err = ImportRoster(db, rows, "changeme123")
	if err != nil {
		t.Fatalf("re-importing roster: %v", err)
	}
	if result.Created != 0 || result.Updated != 2 {
		t.Errorf("result = %+v, want 2 updated", result)
	}

	if err := db.First(&maria, "student_id = ?", "2023-00111").Error; err != nil {
		t.Fatalf("reloading user: %v", err)
	}
	if maria.Role != models.RoleModerator || maria.Email != "maria.santos@campus.edu" {
		t.Errorf("updated user = %+v", maria)
	}
	if maria.PasswordHash != originalHash {
		t.Error("re-import must not touch an existing password")
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 2 {
		t.Errorf("user count = %d, want 2", count)
	}
}
