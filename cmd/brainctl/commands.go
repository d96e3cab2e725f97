package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"docbrain-go/pkg/hash"

	"github.com/spf13/cobra"
)

func printRaw(cmd *cobra.Command, raw json.RawMessage) {
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(raw)))
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show server health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var raw json.RawMessage
		if err := newClient().getJSON(cmd.Context(), "/api/health", &raw); err != nil {
			return err
		}
		if outputJSON {
			printRaw(cmd, raw)
			return nil
		}
		var h struct {
			Status      string `json:"status"`
			VectorDB    string `json:"vectorDB"`
			Personality string `json:"personality"`
		}
		if err := json.Unmarshal(raw, &h); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "status: %s\nvector store: %s\npersonality: %s\n", h.Status, h.VectorDB, h.Personality)
		return nil
	},
}

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the uploaded documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw json.RawMessage
		req := map[string]string{"message": strings.Join(args, " "), "sessionId": askSession}
		if err := newClient().sendJSON(cmd.Context(), http.MethodPost, "/api/chat", req, &raw); err != nil {
			return err
		}
		if outputJSON {
			printRaw(cmd, raw)
			return nil
		}
		var res struct {
			Answer     string   `json:"answer"`
			Sources    []string `json:"sources"`
			Confidence float64  `json:"confidence"`
		}
		if err := json.Unmarshal(raw, &res); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Answer)
		fmt.Fprintln(cmd.OutOrStdout())
		if len(res.Sources) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Sources: %s\n", strings.Join(res.Sources, ", "))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Confidence: %.0f%%\n", res.Confidence*100)
		return nil
	},
}

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Show the chunks most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{"q": {strings.Join(args, " ")}, "k": {strconv.Itoa(searchLimit)}}
		var raw json.RawMessage
		if err := newClient().getJSON(cmd.Context(), "/api/search?"+q.Encode(), &raw); err != nil {
			return err
		}
		if outputJSON {
			printRaw(cmd, raw)
			return nil
		}
		var res struct {
			Results []struct {
				Text       string  `json:"text"`
				Source     string  `json:"source"`
				Similarity float64 `json:"similarity"`
			} `json:"results"`
		}
		if err := json.Unmarshal(raw, &res); err != nil {
			return err
		}
		if len(res.Results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
			return nil
		}
		for i, r := range res.Results {
			snippet := r.Text
			if runes := []rune(snippet); len(runes) > 120 {
				snippet = string(runes[:120]) + "..."
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s (%.2f)\n      %s\n", i+1, r.Source, r.Similarity, snippet)
		}
		return nil
	},
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage uploaded documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var raw json.RawMessage
		if err := newClient().getJSON(cmd.Context(), "/api/documents", &raw); err != nil {
			return err
		}
		if outputJSON {
			printRaw(cmd, raw)
			return nil
		}
		var res struct {
			Documents []struct {
				ID         string `json:"id"`
				Name       string `json:"name"`
				Size       int64  `json:"size"`
				ChunkCount int    `json:"chunkCount"`
			} `json:"documents"`
		}
		if err := json.Unmarshal(raw, &res); err != nil {
			return err
		}
		if len(res.Documents) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No documents.")
			return nil
		}
		for _, d := range res.Documents {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d bytes  %d chunks\n", d.ID, d.Name, d.Size, d.ChunkCount)
		}
		return nil
	},
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload [file...]",
	Short: "Upload files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw json.RawMessage
		if err := newClient().upload(cmd.Context(), args, &raw); err != nil {
			return err
		}
		if outputJSON {
			printRaw(cmd, raw)
			return nil
		}
		var res struct {
			Documents []struct {
				FileName   string `json:"fileName"`
				DocumentID string `json:"documentId"`
				ChunkCount int    `json:"chunkCount"`
				Success    bool   `json:"success"`
				Error      string `json:"error"`
			} `json:"documents"`
		}
		if err := json.Unmarshal(raw, &res); err != nil {
			return err
		}
		failed := 0
		for _, o := range res.Documents {
			if o.Success {
				fmt.Fprintf(cmd.OutOrStdout(), "ok    %s -> %s (%d chunks)\n", o.FileName, o.DocumentID, o.ChunkCount)
			} else {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "fail  %s: %s\n", o.FileName, o.Error)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(res.Documents))
		}
		return nil
	},
}

func messageCommand(use, short, method, path string, args cobra.PositionalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := path
			if len(args) > 0 {
				p = strings.ReplaceAll(p, ":id", url.PathEscape(args[0]))
			}
			var res struct {
				Message string `json:"message"`
			}
			if err := newClient().sendJSON(cmd.Context(), method, p, nil, &res); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

var personalityCmd = &cobra.Command{
	Use:   "personality",
	Short: "List or switch the agent personality",
}

var personalityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List personalities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var res struct {
			Current       string `json:"current"`
			Personalities []struct {
				ID          string `json:"id"`
				Name        string `json:"name"`
				Description string `json:"description"`
			} `json:"personalities"`
		}
		if err := newClient().getJSON(cmd.Context(), "/api/personalities", &res); err != nil {
			return err
		}
		for _, p := range res.Personalities {
			marker := " "
			if p.ID == res.Current {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-24s %s\n", marker, p.ID, p.Description)
		}
		return nil
	},
}

var personalityInstructions string

var personalitySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Switch the agent personality",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res struct {
			Message string `json:"message"`
		}
		req := map[string]string{"personality": args[0], "customInstructions": personalityInstructions}
		if err := newClient().sendJSON(cmd.Context(), http.MethodPost, "/api/personality", req, &res); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login [username] [password]",
	Short: "Obtain an admin token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res struct {
			Token string `json:"token"`
		}
		req := map[string]string{"username": args[0], "password": args[1]}
		if err := newClient().sendJSON(cmd.Context(), http.MethodPost, "/api/auth/login", req, &res); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Token)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print the bcrypt hash for auth.admin_password_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := hash.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), h)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "session id for conversation history")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	personalitySetCmd.Flags().StringVar(&personalityInstructions, "instructions", "", "additional instructions")

	docsCmd.AddCommand(
		docsListCmd,
		docsUploadCmd,
		messageCommand("delete [id]", "Delete a document", http.MethodDelete, "/api/documents/:id", cobra.ExactArgs(1)),
		messageCommand("clear", "Delete every document", http.MethodDelete, "/api/documents", cobra.NoArgs),
		messageCommand("rebuild", "Re-index every stored document", http.MethodPost, "/api/documents/rebuild", cobra.NoArgs),
	)
	personalityCmd.AddCommand(personalityListCmd, personalitySetCmd)
	rootCmd.AddCommand(healthCmd, askCmd, searchCmd, docsCmd, personalityCmd, loginCmd, hashPasswordCmd)
}
