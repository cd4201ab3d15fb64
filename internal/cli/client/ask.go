package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// AskRequest represents the ask API request.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
	Stream   bool   `json:"stream,omitempty"`
}

// Citation represents one cited chunk in an answer.
type Citation struct {
	SourceID     string  `json:"source_id"`
	SourceType   string  `json:"source_type"`
	DocumentName string  `json:"document_name"`
	Ordinal      int     `json:"ordinal"`
	Score        float64 `json:"score"`
}

// AskResponse represents the ask API response.
type AskResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		meetingID string
		stream    bool
		topK      int
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question over ingested meetings",
		Long:  "Asks a question against the indexed meeting content. Scope to one meeting with --meeting, or search across all meetings.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, args[0], meetingID, topK, stream, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&meetingID, "meeting", "m", "", "Meeting ID to scope the question to")
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream the answer as it is generated")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of chunks to retrieve (default server-side)")

	return cmd
}

func askPath(meetingID string) string {
	if meetingID == "" {
		return "/ask"
	}
	return fmt.Sprintf("/meetings/%s/ask", meetingID)
}

func runAsk(cmd *cobra.Command, question, meetingID string, topK int, stream, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	if stream {
		err := api.PostStream(askPath(meetingID), AskRequest{Question: question, TopK: topK, Stream: true}, func(event StreamEvent) error {
			fmt.Print(event.Delta)
			return nil
		})
		if err != nil {
			return fmt.Errorf("ask failed: %w", err)
		}
		fmt.Println()
		return nil
	}

	resp, err := api.Post(askPath(meetingID), AskRequest{Question: question, TopK: topK})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var answer AskResponse
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		out, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(answer.Answer)
	if len(answer.Citations) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, c := range answer.Citations {
			fmt.Printf("  %s (chunk %d, score %.2f)\n", c.DocumentName, c.Ordinal, c.Score)
		}
	}
	return nil
}
