package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage tutoring sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions for a teacher key",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("teacher-key")
		if key == "" {
			return fmt.Errorf("--teacher-key is required")
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		sessions, err := s.ListSessions(context.Background(), key)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		fmt.Printf("%-18s  %-30s  %-8s  %-8s  %s\n", "ID", "Topic", "Diff", "Status", "Created")
		for _, sess := range sessions {
			topic := sess.Topic
			if len(topic) > 30 {
				topic = topic[:30]
			}
			fmt.Printf("%-18s  %-30s  %-8s  %-8s  %s\n",
				sess.ID, topic, sess.Difficulty, sess.Status,
				sess.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var sessionsEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "End a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.EndSession(context.Background(), args[0], time.Now().UTC()); err != nil {
			return fmt.Errorf("end session: %w", err)
		}
		fmt.Println("Session ended.")
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().String("teacher-key", "", "Teacher key that owns the sessions")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsEndCmd)
}
