package scaffold

import (
	"embed"
	"fmt"
	"os"

	"github.com/dyluth/drey/internal/config"
	"github.com/dyluth/drey/internal/document"
	"github.com/dyluth/drey/internal/printer"
)

//go:embed templates/*
var templatesFS embed.FS

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Template    string
	Permissions os.FileMode
}

// projectFiles lists what Initialize creates, in creation order.
var projectFiles = []FileInfo{
	{Path: config.DefaultPath, Template: "templates/drey.yml.tmpl", Permissions: 0644},
	{Path: "tree.yml", Template: "templates/tree.yml.tmpl", Permissions: 0644},
	{Path: "patch.yml", Template: "templates/patch.yml.tmpl", Permissions: 0644},
}

// Initialize creates a drey project in the current directory.
// If force is true, existing project files are replaced.
func Initialize(force bool) error {
	if force {
		if err := handleForce(); err != nil {
			return err
		}
	}

	for _, file := range projectFiles {
		content, err := templatesFS.ReadFile(file.Template)
		if err != nil {
			return fmt.Errorf("failed to read %s template: %w", file.Path, err)
		}
		if err := os.WriteFile(file.Path, content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}

	return validateCreatedFiles()
}

// handleForce removes existing project files if --force was specified
func handleForce() error {
	for _, file := range projectFiles {
		if _, err := os.Stat(file.Path); err == nil {
			printer.Warning("Removing existing %s...\n", file.Path)
			if err := os.Remove(file.Path); err != nil {
				return fmt.Errorf("failed to remove %s: %w", file.Path, err)
			}
		}
	}
	return nil
}

// validateCreatedFiles loads every created file the way the CLI will
func validateCreatedFiles() error {
	if _, err := config.Load(config.DefaultPath); err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.DefaultPath, err)
	}
	if _, err := document.LoadTree("tree.yml"); err != nil {
		return fmt.Errorf("created tree.yml is invalid: %w", err)
	}
	if _, err := document.LoadPatch("patch.yml"); err != nil {
		return fmt.Errorf("created patch.yml is invalid: %w", err)
	}
	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	printer.Println()
	printer.Success("Successfully initialized drey project!\n")
	printer.Println("\nCreated:")
	for _, file := range projectFiles {
		printer.Printf("  ✓ %s\n", file.Path)
	}
	printer.Println("\nNext steps:")
	printer.Println("  1. Edit tree.yml to describe your instance tree")
	printer.Println("  2. Preview the example patch:  drey apply --tree tree.yml --patch patch.yml --diff")
	printer.Println("  3. Write the result back:      drey apply --tree tree.yml --patch patch.yml --out tree.yml")
}
