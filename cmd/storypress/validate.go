package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storypress/internal/story"
)

// validateCmd checks the story collection without opening a browser
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Pre-flight check of the local story collection",
	Long: `Walks every story directory and reports structural errors (bad or
missing story.json, empty content) and warnings (missing images, no
tags) without touching the browser. Exits non-zero when any story has
errors.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reports, err := story.Check(cfg.StoriesDir)
	if err != nil {
		return fmt.Errorf("check stories: %w", err)
	}
	if len(reports) == 0 {
		return fmt.Errorf("no stories found under %s", cfg.StoriesDir)
	}

	bad := 0
	for _, r := range reports {
		switch {
		case !r.OK():
			bad++
			fmt.Printf("✗ %s\n", r.Slug)
			for _, e := range r.Errors {
				fmt.Printf("    error: %s\n", e)
			}
		case len(r.Warnings) > 0:
			fmt.Printf("! %s\n", r.Slug)
		default:
			fmt.Printf("✓ %s\n", r.Slug)
		}
		for _, w := range r.Warnings {
			fmt.Printf("    warning: %s\n", w)
		}
	}

	fmt.Printf("\n%d stories, %d with errors\n", len(reports), bad)
	if bad > 0 {
		os.Exit(1)
	}
	return nil
}
