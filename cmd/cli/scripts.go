package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newScriptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scripts",
		Short: "Manage scripts",
	}

	cmd.AddCommand(newScriptsListCmd())
	cmd.AddCommand(newScriptsGetCmd())
	cmd.AddCommand(newScriptsCreateCmd())
	cmd.AddCommand(newScriptsUpdateCmd())
	cmd.AddCommand(newScriptsDeleteCmd())
	cmd.AddCommand(newScriptsHistoryCmd())
	cmd.AddCommand(newScriptsDuplicateCmd())
	cmd.AddCommand(newScriptsPreviewCmd())
	return cmd
}

// resolveCode returns the script body from --code or --code-file.
func resolveCode(code, codeFile string) (string, error) {
	if codeFile == "" {
		return code, nil
	}
	data, err := os.ReadFile(codeFile)
	if err != nil {
		return "", fmt.Errorf("failed to read code file: %w", err)
	}
	return string(data), nil
}

func newScriptsListCmd() *cobra.Command {
	var page, perPage int
	var orderBy, orderDirection, filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getClient()

			query := url.Values{}
			if page > 0 {
				query.Set("page", strconv.Itoa(page))
			}
			if perPage > 0 {
				query.Set("per_page", strconv.Itoa(perPage))
			}
			if orderBy != "" {
				query.Set("order_by", orderBy)
			}
			if orderDirection != "" {
				query.Set("order_direction", orderDirection)
			}
			if filter != "" {
				query.Set("filter", filter)
			}

			body, err := client.Get("/scripts", query)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var resp ScriptListResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"ID", "TITLE", "LANGUAGE", "DESCRIPTION", "UPDATED AT"}
			var rows [][]string
			for _, s := range resp.Data {
				rows = append(rows, []string{
					s.ID.String(),
					s.Title,
					s.Language,
					truncate(s.Description, 40),
					s.UpdatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\nShowing %d of %d scripts (page %d of %d)",
				len(resp.Data), resp.Meta.Total, resp.Meta.CurrentPage, resp.Meta.LastPage))
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "Results per page")
	cmd.Flags().StringVar(&orderBy, "order-by", "", "Sort field (id, title, language, description, created_at, updated_at)")
	cmd.Flags().StringVar(&orderDirection, "order-direction", "", "Sort direction (asc or desc)")
	cmd.Flags().StringVar(&filter, "filter", "", "Filter on title and description")
	return cmd
}

func newScriptsGetCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a script by ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getClient()

			body, err := client.Get(fmt.Sprintf("/scripts/%s", id), nil)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var s ScriptResponse
			if err := json.Unmarshal(body, &s); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			key := "(none)"
			if s.Key != nil {
				key = *s.Key
			}

			headers := []string{"FIELD", "VALUE"}
			rows := [][]string{
				{"ID", s.ID.String()},
				{"Version ID", s.VersionID.String()},
				{"Title", s.Title},
				{"Language", s.Language},
				{"Description", s.Description},
				{"Key", key},
				{"Created At", s.CreatedAt.Format("2006-01-02 15:04:05")},
				{"Updated At", s.UpdatedAt.Format("2006-01-02 15:04:05")},
			}
			printTable(headers, rows)
			printMessage("\n" + s.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Script ID (required)")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newScriptsCreateCmd() *cobra.Command {
	var title, language, code, codeFile, description, key string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new script",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getClient()

			resolved, err := resolveCode(code, codeFile)
			if err != nil {
				return err
			}

			req := CreateScriptRequest{
				Title:       title,
				Language:    language,
				Code:        resolved,
				Description: description,
			}
			if key != "" {
				req.Key = &key
			}

			body, err := client.Post("/scripts", req)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var s ScriptResponse
			if err := json.Unmarshal(body, &s); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(fmt.Sprintf("Script created: %s (%s)", s.Title, s.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Script title (required)")
	cmd.MarkFlagRequired("title")
	cmd.Flags().StringVar(&language, "language", "", "Script language: php, lua or javascript (required)")
	cmd.MarkFlagRequired("language")
	cmd.Flags().StringVar(&code, "code", "", "Script code")
	cmd.Flags().StringVar(&codeFile, "code-file", "", "Read script code from a file")
	cmd.Flags().StringVar(&description, "description", "", "Script description")
	cmd.Flags().StringVar(&key, "key", "", "Lookup key; keyed scripts are hidden from listings")
	return cmd
}

func newScriptsUpdateCmd() *cobra.Command {
	var id, title, language, code, codeFile, description string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a script (appends a new version)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getClient()

			req := UpdateScriptRequest{}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("language") {
				req.Language = &language
			}
			if cmd.Flags().Changed("code") || cmd.Flags().Changed("code-file") {
				resolved, err := resolveCode(code, codeFile)
				if err != nil {
					return err
				}
				req.Code = &resolved
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}

			if _, err := client.Put(fmt.Sprintf("/scripts/%s", id), req); err != nil {
				return err
			}

			printMessage(fmt.Sprintf("Script updated: %s", id))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Script ID (required)")
	cmd.MarkFlagRequired("id")
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&language, "language", "", "New language")
	cmd.Flags().StringVar(&code, "code", "", "New code")
	cmd.Flags().StringVar(&codeFile, "code-file", "", "Read new code from a file")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	return cmd
}

func newScriptsDeleteCmd() *cobra.Command {
	var id string
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a script and its version history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmAction(fmt.Sprintf("Delete script %s?", id), yes) {
				printMessage("Aborted.")
				return nil
			}

			client := getClient()

			if _, err := client.Delete(fmt.Sprintf("/scripts/%s", id)); err != nil {
				return err
			}

			printMessage("Script deleted successfully.")
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Script ID (required)")
	cmd.MarkFlagRequired("id")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip confirmation")
	return cmd
}

func newScriptsHistoryCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a script's versions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getClient()

			body, err := client.Get(fmt.Sprintf("/scripts/%s/versions", id), nil)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var resp HistoryListResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"VERSION ID", "TITLE", "LANGUAGE", "CODE", "CREATED AT"}
			var rows [][]string
			for _, v := range resp.Data {
				rows = append(rows, []string{
					v.ID.String(),
					v.Title,
					v.Language,
					truncate(v.Code, 40),
					v.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\n%d versions", resp.Meta.Total))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Script ID (required)")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newScriptsDuplicateCmd() *cobra.Command {
	var id, title string

	cmd := &cobra.Command{
		Use:   "duplicate",
		Short: "Copy a script's current version under a new title",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getClient()

			body, err := client.Post(fmt.Sprintf("/scripts/%s/duplicate", id), DuplicateScriptRequest{Title: title})
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var s ScriptResponse
			if err := json.Unmarshal(body, &s); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(fmt.Sprintf("Script duplicated: %s (%s)", s.Title, s.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Source script ID (required)")
	cmd.MarkFlagRequired("id")
	cmd.Flags().StringVar(&title, "title", "", "Title for the copy (required)")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newScriptsPreviewCmd() *cobra.Command {
	var language, code, codeFile, data string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Run code in the sandbox without saving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getClient()

			resolved, err := resolveCode(code, codeFile)
			if err != nil {
				return err
			}

			query := url.Values{}
			query.Set("language", language)
			query.Set("code", resolved)
			if data != "" {
				query.Set("data", data)
			}

			body, err := client.PostQuery("/scripts/preview", query)
			if err != nil {
				return err
			}

			var resp PreviewResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printJSON(resp.Output)
			return nil
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "Script language: php, lua or javascript (required)")
	cmd.MarkFlagRequired("language")
	cmd.Flags().StringVar(&code, "code", "", "Script code")
	cmd.Flags().StringVar(&codeFile, "code-file", "", "Read script code from a file")
	cmd.Flags().StringVar(&data, "data", "", "JSON input object passed to the script")
	return cmd
}
