package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	authToken string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "export-cli",
		Short:         "Manage nestling-tracker report exports from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "url", envOr("TRACKER_URL", "http://localhost:8080"), "Base URL of the tracker API")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("TRACKER_TOKEN"), "Bearer token for the tracker API")

	rootCmd.AddCommand(
		newCreateCmd(),
		newListCmd(),
		newStatusCmd(),
		newWatchCmd(),
		newDownloadCmd(),
		newCancelCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// exportRecord mirrors the export resource of the tracker API.
type exportRecord struct {
	ID           string  `json:"id"`
	ChildID      string  `json:"child_id"`
	Format       string  `json:"format"`
	Status       string  `json:"status"`
	Progress     int     `json:"progress"`
	ErrorMessage *string `json:"error_message"`
	Result       *struct {
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
	} `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

type apiError struct {
	Errors []struct {
		Status string `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func newCreateCmd() *cobra.Command {
	var (
		childID  string
		format   string
		name     string
		from     string
		to       string
		sections []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a new export",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"child_id": childID,
				"format":   format,
			}
			if name != "" {
				body["name"] = name
			}
			if len(sections) > 0 {
				body["sections"] = sections
			}
			for flag, value := range map[string]string{"from": from, "to": to} {
				if value == "" {
					continue
				}
				ts, err := parseTime(value)
				if err != nil {
					return fmt.Errorf("invalid --%s: %w", flag, err)
				}
				body[flag] = ts
			}

			var job exportRecord
			if err := doRequest(http.MethodPost, "/api/v1/exports", body, &job); err != nil {
				return err
			}

			fmt.Printf("Export %s started (%s, %s)\n", job.ID, job.Format, job.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&childID, "child", "", "Child ID to export (required)")
	cmd.Flags().StringVar(&format, "format", "pdf", "Export format (pdf or csv)")
	cmd.Flags().StringVar(&name, "name", "", "Display name for the export")
	cmd.Flags().StringVar(&from, "from", "", "Start of the exported range (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End of the exported range (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&sections, "sections", nil, "Report sections to include")
	cmd.MarkFlagRequired("child")

	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the family's exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			var jobs []exportRecord
			if err := doRequest(http.MethodGet, "/api/v1/exports", nil, &jobs); err != nil {
				return err
			}

			if len(jobs) == 0 {
				fmt.Println("No exports found")
				return nil
			}

			fmt.Printf("%-36s  %-6s  %-10s  %-8s  %s\n", "ID", "FORMAT", "STATUS", "PROGRESS", "CREATED")
			for _, job := range jobs {
				fmt.Printf("%-36s  %-6s  %-10s  %7d%%  %s\n",
					job.ID, job.Format, job.Status, job.Progress,
					job.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <export-id>",
		Short: "Show the current status of one export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var job exportRecord
			if err := doRequest(http.MethodGet, "/api/v1/exports/"+args[0]+"/status", nil, &job); err != nil {
				return err
			}
			printStatus(job.Status, job.Progress, job.ErrorMessage)
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <export-id>",
		Short: "Stream status updates until the export finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wsURL, err := watchURL(serverURL, args[0])
			if err != nil {
				return err
			}

			header := http.Header{}
			if authToken != "" {
				header.Set("Authorization", "Bearer "+authToken)
			}

			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if err != nil {
				if resp != nil {
					return fmt.Errorf("connecting to %s: %s", wsURL, resp.Status)
				}
				return fmt.Errorf("connecting to %s: %w", wsURL, err)
			}
			defer conn.Close()

			for {
				var state struct {
					Status       string `json:"status"`
					Progress     int    `json:"progress"`
					ErrorMessage string `json:"error_message"`
				}
				if err := conn.ReadJSON(&state); err != nil {
					if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
						return nil
					}
					return fmt.Errorf("reading status stream: %w", err)
				}
				var msg *string
				if state.ErrorMessage != "" {
					msg = &state.ErrorMessage
				}
				printStatus(state.Status, state.Progress, msg)
			}
		},
	}
}

func newDownloadCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <export-id>",
		Short: "Download a completed export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := rawRequest(http.MethodGet, "/api/v1/exports/"+args[0]+"/download", nil)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return decodeAPIError(resp)
			}

			path := output
			if path == "" {
				path = dispositionFilename(resp.Header.Get("Content-Disposition"), args[0])
			}

			file, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating %s: %w", path, err)
			}
			defer file.Close()

			written, err := io.Copy(file, resp.Body)
			if err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			fmt.Printf("Saved %s (%d bytes)\n", path, written)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to the served filename)")

	return cmd
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <export-id>",
		Short: "Cancel a running export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := doRequest(http.MethodDelete, "/api/v1/exports/"+args[0], nil, nil); err != nil {
				return err
			}
			fmt.Printf("Export %s cancelled\n", args[0])
			return nil
		},
	}
}

func printStatus(status string, progress int, errorMessage *string) {
	line := fmt.Sprintf("%-10s %3d%%", status, progress)
	if errorMessage != nil && *errorMessage != "" {
		line += "  " + *errorMessage
	}
	fmt.Println(line)
}

func parseTime(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	ts, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", value)
	}
	return ts, nil
}

// watchURL rewrites the API base URL into the WebSocket endpoint for one
// export's watch stream.
func watchURL(base, exportID string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", base, err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in server URL", parsed.Scheme)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/api/v1/exports/" + exportID + "/watch"
	return parsed.String(), nil
}

func dispositionFilename(header, fallback string) string {
	if header != "" {
		if _, params, err := mime.ParseMediaType(header); err == nil {
			if name := filepath.Base(params["filename"]); name != "" && name != "." {
				return name
			}
		}
	}
	return fallback + ".export"
}

func rawRequest(method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, strings.TrimRight(serverURL, "/")+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	return client.Do(req)
}

func doRequest(method, path string, body, out interface{}) error {
	resp, err := rawRequest(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var apiErr apiError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && len(apiErr.Errors) > 0 {
		e := apiErr.Errors[0]
		if e.Detail != "" {
			return fmt.Errorf("%s: %s", e.Title, e.Detail)
		}
		return fmt.Errorf("%s", e.Title)
	}
	return fmt.Errorf("request failed with status %s", resp.Status)
}
