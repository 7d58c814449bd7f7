package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"draftline-hq/meridian/pkg/policy"
	"draftline-hq/meridian/pkg/policy/normalize"
)

var lintFlags struct {
	file   string
	dir    string
	strict bool
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate policy declarations",
	Long: `Validate policy declaration files for syntax and structural errors.

The lint command decodes declarations, compiles every inline condition, and
runs full normalization:
  - YAML/JSON syntax validation
  - Structural validation (trigger and action kinds, goto targets)
  - Condition compilation warnings (degraded expressions)
  - Legacy-field migration report

Examples:
  # Lint single file
  meridian lint --file policies.yaml

  # Lint directory
  meridian lint --dir policies/

  # Strict mode (warnings as errors)
  meridian lint --file policies.yaml --strict

  # JSON output for CI/CD
  meridian lint --file policies.yaml --format json`,
	RunE: lintPolicies,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "policy declaration file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of declaration files")
	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// LintResult is the lint outcome for one declaration file.
type LintResult struct {
	File        string   `json:"file"`
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	LegacyNotes []string `json:"legacyNotes,omitempty"`
	PolicyCount int      `json:"policyCount"`
}

func lintPolicies(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string

	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}

	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list declaration files: %w", err)
			}
			files = append(files, matches...)
		}
	}

	if len(files) == 0 {
		return fmt.Errorf("no declaration files found")
	}

	results := make([]LintResult, 0, len(files))
	for _, file := range files {
		results = append(results, lintFile(file))
	}

	if lintFlags.format == "json" {
		return outputJSON(results)
	}
	return outputText(results, lintFlags.strict)
}

func lintFile(path string) LintResult {
	result := LintResult{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("cannot read file: %v", err))
		return result
	}

	raw, err := decodeDeclaration(path, data)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	normalized, err := normalize.New(nil).Normalize(raw)
	if err != nil {
		var list *policy.DeclErrorList
		if errors.As(err, &list) {
			for _, declErr := range list.Errors {
				result.Errors = append(result.Errors, declErr.Error())
			}
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
		return result
	}

	result.Valid = true
	result.PolicyCount = len(normalized.Runtime)
	result.LegacyNotes = normalized.LegacyNotes

	for _, p := range normalized.Runtime {
		cond := p.Trigger.Condition
		if cond == nil || cond.Compiled == nil {
			continue
		}
		for _, warning := range cond.Compiled.Warnings {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("policy %q: %s", p.ID, warning))
		}
	}

	return result
}

// decodeDeclaration picks the decoder by file extension; .json is JSON,
// everything else YAML.
func decodeDeclaration(path string, data []byte) (*policy.RawTaskPolicies, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return policy.DecodeJSON(data)
	}
	return policy.DecodeYAML(data)
}

func outputJSON(results []LintResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}

	for _, r := range results {
		if !r.Valid || (lintFlags.strict && len(r.Warnings) > 0) {
			os.Exit(1)
		}
	}
	return nil
}

func outputText(results []LintResult, strict bool) error {
	failed := false

	for _, r := range results {
		switch {
		case !r.Valid:
			failed = true
			fmt.Printf("FAIL  %s\n", r.File)
			for _, e := range r.Errors {
				fmt.Printf("      error: %s\n", e)
			}
		case strict && len(r.Warnings) > 0:
			failed = true
			fmt.Printf("FAIL  %s (warnings in strict mode)\n", r.File)
		default:
			fmt.Printf("OK    %s (%d runtime policies)\n", r.File, r.PolicyCount)
		}

		for _, w := range r.Warnings {
			fmt.Printf("      warning: %s\n", w)
		}
		for _, note := range r.LegacyNotes {
			fmt.Printf("      legacy: %s\n", note)
		}
	}

	if failed {
		os.Exit(1)
	}
	return nil
}
