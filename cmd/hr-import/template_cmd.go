package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/campus-hr/hrdesk/modules/hrm/infrastructure/spreadsheet"
)

func newTemplateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write an empty import template (.xlsx)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplate(output)
		},
	}
	cmd.Flags().StringVar(&output, "output", "employee-import-template.xlsx", "Output path")
	return cmd
}

func runTemplate(output string) error {
	output = strings.TrimSpace(output)
	if output == "" {
		return withCode(exitUsage, fmt.Errorf("--output is required"))
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return withCode(exitUsage, fmt.Errorf("mkdir %s: %w", dir, err))
		}
	}
	f, err := os.Create(output)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("create %s: %w", output, err))
	}
	if err := spreadsheet.WriteTemplate(f); err != nil {
		_ = f.Close()
		return withCode(exitUsage, fmt.Errorf("write template: %w", err))
	}
	return f.Close()
}
