package config

import (
	"os"

	"github.com/joho/godotenv"
)

// envFiles are tried in order; the first one that parses wins.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads variables from the first readable env file without
// overriding variables already set in the process environment. It returns the
// file that was loaded, or "" when none exists.
func loadEnvFiles() (string, error) {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return "", err
		}
		return name, nil
	}
	return "", nil
}
