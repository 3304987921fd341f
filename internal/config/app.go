package config

import (
	"os"
	"strings"
)

func BasePath() string {
	return strings.TrimSuffix(os.Getenv("APP_BASE_PATH"), "/")
}

// Port returns the listen address, ":8080" when APP_PORT is unset.
func Port() string {
	port, ok := os.LookupEnv("APP_PORT")
	if !ok || port == "" {
		return ":8080"
	}
	if !strings.Contains(port, ":") {
		port = ":" + port
	}
	return port
}

func Development() bool {
	development, ok := os.LookupEnv("DEVELOPMENT")
	if !ok {
		return false
	}
	switch strings.ToLower(development) {
	case "", "0", "false", "no":
		return false
	}
	return true
}

func lookupList(key string) []string {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return nil
	}
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// AllowedOrigins reads the comma separated CORS_ALLOWED_ORIGINS. An empty
// list allows every origin.
func AllowedOrigins() []string {
	return lookupList("CORS_ALLOWED_ORIGINS")
}
