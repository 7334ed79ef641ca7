package cmd

import (
	"fmt"

	"github.com/campushub/backend/internal/models"
	"github.com/campushub/backend/internal/services"
	"github.com/spf13/cobra"
)

var (
	flagStudentID string
	flagRole      string
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Set a single account's role",
	RunE: func(cmd *cobra.Command, args []string) error {
		var user models.User
		if err := db.First(&user, "student_id = ?", flagStudentID).Error; err != nil {
			return fmt.Errorf("looking up %s: %w", flagStudentID, err)
		}

		newRole := services.NormalizeRole(flagRole)
		oldRole := user.Role
		if newRole == oldRole {
			fmt.Printf("%s already has role %s\n", flagStudentID, oldRole)
			return nil
		}

		if err := db.Model(&user).Update("role", newRole).Error; err != nil {
			return fmt.Errorf("updating role: %w", err)
		}

		audit := services.NewAuditService(db)
		defer audit.Close()
		if err := audit.Log(services.AuditEntry{
			Action:       "user.role_change",
			ResourceType: "user",
			ResourceID:   &user.ID,
			Details: map[string]interface{}{
				"old_role": string(oldRole),
				"new_role": string(newRole),
				"via":      "campusctl",
			},
		}); err != nil {
			return fmt.Errorf("recording audit entry: %w", err)
		}

		fmt.Printf("Changed %s: %s -> %s\n", flagStudentID, oldRole, newRole)
		return nil
	},
}

func init() {
	promoteCmd.Flags().StringVar(&flagStudentID, "student-id", "", "Student id of the account (required)")
	promoteCmd.Flags().StringVar(&flagRole, "role", "", "New role: student, teacher, moderator, admin or legacy code 1-4 (required)")
	_ = promoteCmd.MarkFlagRequired("student-id")
	_ = promoteCmd.MarkFlagRequired("role")
	rootCmd.AddCommand(promoteCmd)
}
