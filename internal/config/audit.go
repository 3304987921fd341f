package config

import (
	"fmt"
	"os"
	"strconv"
)

type Audit struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func lookupInt(key string, fallback int) (int, error) {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// NewAudit reads AUDIT_LOG_FILE and its rotation settings. An empty file
// disables the journal.
func NewAudit() (*Audit, error) {
	audit := &Audit{File: os.Getenv("AUDIT_LOG_FILE")}

	var err error
	if audit.MaxSizeMB, err = lookupInt("AUDIT_LOG_MAX_SIZE_MB", 50); err != nil {
		return nil, err
	}
	if audit.MaxBackups, err = lookupInt("AUDIT_LOG_MAX_BACKUPS", 3); err != nil {
		return nil, err
	}
	if audit.MaxAgeDays, err = lookupInt("AUDIT_LOG_MAX_AGE_DAYS", 28); err != nil {
		return nil, err
	}
	return audit, nil
}
