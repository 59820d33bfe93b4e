package config

import (
	"os"
	"strconv"
)

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

// getBool reports the parsed value and whether the variable was set to
// something strconv understands.
func getBool(key string) (bool, bool) {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return false, false
	}
	return value, true
}
