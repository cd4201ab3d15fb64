package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Source represents a source in API responses.
type Source struct {
	ID                  string `json:"id"`
	MeetingID           string `json:"meeting_id"`
	Kind                string `json:"kind"`
	FileName            string `json:"file_name"`
	Status              string `json:"status"`
	ErrorMessage        string `json:"error_message,omitempty"`
	ChunkCount          int    `json:"chunk_count"`
	EmbeddingsCreatedAt string `json:"embeddings_created_at,omitempty"`
	CreatedAt           string `json:"created_at"`
}

// SourceCmd creates the source command group.
func SourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage meeting sources",
		Long:  "Upload, inspect, re-ingest and delete the documents and recordings a meeting is indexed from.",
	}

	cmd.AddCommand(sourceUploadCmd())
	cmd.AddCommand(sourceListCmd())
	cmd.AddCommand(sourceGetCmd())
	cmd.AddCommand(sourceReingestCmd())
	cmd.AddCommand(sourceDeleteCmd())

	return cmd
}

func sourceUploadCmd() *cobra.Command {
	var meetingID string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document or recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if meetingID == "" {
				return fmt.Errorf("--meeting is required")
			}
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("cannot read file: %w", err)
			}

			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			resp, err := api.PostFile(fmt.Sprintf("/meetings/%s/sources", meetingID), args[0])
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			var src Source
			if err := json.Unmarshal(resp.Data, &src); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			fmt.Printf("Uploaded %s (source %s, status: %s)\n", src.FileName, src.ID, src.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&meetingID, "meeting", "m", "", "Meeting ID (required)")
	return cmd
}

func sourceListCmd() *cobra.Command {
	var meetingID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a meeting's sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			if meetingID == "" {
				return fmt.Errorf("--meeting is required")
			}

			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(fmt.Sprintf("/meetings/%s/sources", meetingID))
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}

			var sources []Source
			if err := json.Unmarshal(resp.Data, &sources); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				out, err := json.MarshalIndent(sources, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			if len(sources) == 0 {
				fmt.Println("No sources.")
				return nil
			}
			for _, src := range sources {
				fmt.Printf("%s  %-12s %-11s chunks=%d  %s\n", src.ID, src.Kind, src.Status, src.ChunkCount, src.FileName)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&meetingID, "meeting", "m", "", "Meeting ID (required)")
	return cmd
}

func sourceGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a source and its ingestion status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/sources/" + args[0])
			if err != nil {
				return fmt.Errorf("get failed: %w", err)
			}

			var src Source
			if err := json.Unmarshal(resp.Data, &src); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Printf("ID:         %s\n", src.ID)
			fmt.Printf("Meeting:    %s\n", src.MeetingID)
			fmt.Printf("Kind:       %s\n", src.Kind)
			fmt.Printf("File:       %s\n", src.FileName)
			fmt.Printf("Status:     %s\n", src.Status)
			fmt.Printf("Chunks:     %d\n", src.ChunkCount)
			if src.EmbeddingsCreatedAt != "" {
				fmt.Printf("Indexed at: %s\n", src.EmbeddingsCreatedAt)
			}
			if src.ErrorMessage != "" {
				fmt.Printf("Error:      %s\n", src.ErrorMessage)
			}
			return nil
		},
	}
}

func sourceReingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reingest <id>",
		Short: "Queue a forced re-ingestion of a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			if _, err := api.Post("/sources/"+args[0]+"/reingest", struct{}{}); err != nil {
				return fmt.Errorf("reingest failed: %w", err)
			}
			fmt.Println("Re-ingestion queued.")
			return nil
		},
	}
}

func sourceDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a source and everything derived from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			if _, err := api.Delete("/sources/" + args[0]); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}
			fmt.Println("Source deleted.")
			return nil
		},
	}
}

// TranscriptCmd creates the transcript command.
func TranscriptCmd() *cobra.Command {
	var (
		meetingID string
		filePath  string
	)

	cmd := &cobra.Command{
		Use:   "transcript [text]",
		Short: "Register transcript text for a meeting",
		Long:  "Registers raw transcript text for a meeting, either inline or from a file, and queues it for indexing.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if meetingID == "" {
				return fmt.Errorf("--meeting is required")
			}

			var text string
			switch {
			case filePath != "":
				raw, err := os.ReadFile(filePath)
				if err != nil {
					return fmt.Errorf("cannot read file: %w", err)
				}
				text = string(raw)
			case len(args) == 1:
				text = args[0]
			default:
				return fmt.Errorf("provide transcript text or --file")
			}

			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post(fmt.Sprintf("/meetings/%s/transcript", meetingID),
				map[string]string{"text": text})
			if err != nil {
				return fmt.Errorf("transcript registration failed: %w", err)
			}

			var src Source
			if err := json.Unmarshal(resp.Data, &src); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			fmt.Printf("Transcript registered (source %s, status: %s)\n", src.ID, src.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&meetingID, "meeting", "m", "", "Meeting ID (required)")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read transcript text from a file")
	return cmd
}
