package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Turn represents a conversation turn in API responses.
type Turn struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	CitedOrdinals []int  `json:"cited_ordinals,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// HistoryCmd creates the history command group.
func HistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear conversation history",
	}

	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyClearCmd())

	return cmd
}

func historyListCmd() *cobra.Command {
	var (
		meetingID string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show your recent turns for a meeting",
		RunE: func(cmd *cobra.Command, args []string) error {
			if meetingID == "" {
				return fmt.Errorf("--meeting is required")
			}

			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(fmt.Sprintf("/meetings/%s/history?limit=%d", meetingID, limit))
			if err != nil {
				return fmt.Errorf("history failed: %w", err)
			}

			var turns []Turn
			if err := json.Unmarshal(resp.Data, &turns); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				out, err := json.MarshalIndent(turns, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			if len(turns) == 0 {
				fmt.Println("No history.")
				return nil
			}
			for _, t := range turns {
				fmt.Printf("Q: %s\n", t.Question)
				fmt.Printf("A: %s\n\n", t.Answer)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&meetingID, "meeting", "m", "", "Meeting ID (required)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of turns")
	return cmd
}

func historyClearCmd() *cobra.Command {
	var meetingID string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded turns for a meeting",
		RunE: func(cmd *cobra.Command, args []string) error {
			if meetingID == "" {
				return fmt.Errorf("--meeting is required")
			}

			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			if _, err := api.Delete(fmt.Sprintf("/meetings/%s/history", meetingID)); err != nil {
				return fmt.Errorf("clear failed: %w", err)
			}
			fmt.Println("History cleared.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&meetingID, "meeting", "m", "", "Meeting ID (required)")
	return cmd
}

// AgendaCmd creates the agenda command.
func AgendaCmd() *cobra.Command {
	var meetingID string

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Suggest follow-up agenda items for a meeting",
		RunE: func(cmd *cobra.Command, args []string) error {
			if meetingID == "" {
				return fmt.Errorf("--meeting is required")
			}

			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(fmt.Sprintf("/meetings/%s/agenda-suggestions", meetingID))
			if err != nil {
				return fmt.Errorf("agenda failed: %w", err)
			}

			var body struct {
				Suggestions []string `json:"suggestions"`
			}
			if err := json.Unmarshal(resp.Data, &body); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if len(body.Suggestions) == 0 {
				fmt.Println("No suggestions yet; ingest some meeting content first.")
				return nil
			}
			for _, item := range body.Suggestions {
				fmt.Printf("- %s\n", item)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&meetingID, "meeting", "m", "", "Meeting ID (required)")
	return cmd
}
