package cmd

import (
	"fmt"
	"os"

	"github.com/campushub/backend/internal/services"
	"github.com/spf13/cobra"
)

var (
	flagRosterFile      string
	flagDefaultPassword string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a registrar roster CSV (creates or updates accounts)",
	Long: `Reads a CSV with columns studentID,email,firstName,lastName,course,
yearLevel,role and upserts accounts keyed on studentID. The role column
accepts role names or the registrar's legacy numeric codes (1=student,
2=teacher, 3=moderator, 4=admin).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(flagRosterFile)
		if err != nil {
			return fmt.Errorf("opening roster: %w", err)
		}
		defer file.Close()

		rows, err := services.ParseRoster(file)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("roster contains no rows")
		}

		result, err := services.ImportRoster(db, rows, flagDefaultPassword)
		if err != nil {
			return err
		}

		audit := services.NewAuditService(db)
		defer audit.Close()
		if err := audit.Log(services.AuditEntry{
			Action:       "roster.import",
			ResourceType: "roster",
			Details: map[string]interface{}{
				"file":    flagRosterFile,
				"created": result.Created,
				"updated": result.Updated,
			},
		}); err != nil {
			return fmt.Errorf("recording audit entry: %w", err)
		}

		fmt.Printf("Imported %d rows: %d created, %d updated\n", len(rows), result.Created, result.Updated)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&flagRosterFile, "file", "", "Path to the roster CSV (required)")
	importCmd.Flags().StringVar(&flagDefaultPassword, "default-password", "changeme123", "Initial password for newly created accounts")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
