// AngelaMos | 2026
// prompt.go

package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// Prompter asks for whatever login credentials were not given as flags.
type Prompter interface {
	Credentials(email, password string) (string, string, error)
}

type huhPrompter struct{}

func (huhPrompter) Credentials(email, password string) (string, string, error) {
	var fields []huh.Field

	if email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("you@farm.example").
			Value(&email))
	}
	if password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&password))
	}
	if len(fields) == 0 {
		return email, password, nil
	}

	form := huh.NewForm(huh.NewGroup(fields...))
	if err := form.Run(); err != nil {
		return "", "", fmt.Errorf("login prompt: %w", err)
	}
	return email, password, nil
}

func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
