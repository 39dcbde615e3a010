package scaffold

import (
	"fmt"
	"os"
	"strings"
)

// CheckExisting checks if any project file already exists
// Returns an error if one does, nil otherwise
func CheckExisting() error {
	var existingFiles []string
	for _, file := range projectFiles {
		if _, err := os.Stat(file.Path); err == nil {
			existingFiles = append(existingFiles, file.Path)
		}
	}

	if len(existingFiles) == 0 {
		return nil
	}

	var msg strings.Builder
	msg.WriteString("project already initialized\n\nFound existing")
	if len(existingFiles) == 1 {
		fmt.Fprintf(&msg, ": %s\n", existingFiles[0])
	} else {
		msg.WriteString(" files:\n")
		for _, file := range existingFiles {
			fmt.Fprintf(&msg, "  - %s\n", file)
		}
	}
	msg.WriteString("\nUse 'drey init --force' to reinitialize (this will overwrite existing files)")

	return fmt.Errorf("%s", msg.String())
}
