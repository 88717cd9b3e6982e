package main

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

// readSecret returns a secret with the following priority:
// 1. envVar environment variable
// 2. content of the file named by fileEnvVar (or defaultFile)
// 3. fallback
func readSecret(logger *zap.Logger, envVar, fileEnvVar, defaultFile, fallback string) string {
	if value := os.Getenv(envVar); value != "" {
		logger.Debug("Using secret from environment variable", zap.String("env", envVar))
		return value
	}

	file := os.Getenv(fileEnvVar)
	if file == "" {
		file = defaultFile
	}
	if file != "" {
		if content, err := os.ReadFile(file); err == nil {
			if value := strings.TrimSpace(string(content)); value != "" {
				logger.Debug("Using secret from file", zap.String("file", file))
				return value
			}
		} else {
			logger.Debug("Secret file not found or empty", zap.String("file", file))
		}
	}

	return fallback
}

// GetKeyDBURL returns the KeyDB URL from KEYDB_URL, the KEYDB_URL_FILE file, or the default
func GetKeyDBURL(logger *zap.Logger) string {
	return readSecret(logger, "KEYDB_URL", "KEYDB_URL_FILE", "/app/.keydb-url", "redis://keydb:6379")
}

// GetDatabaseURL returns the license database DSN
func GetDatabaseURL(logger *zap.Logger) string {
	return readSecret(logger, "DATABASE_URL", "DATABASE_URL_FILE", "/app/.database-url", "")
}

// GetSessionSecret returns the HS256 secret access tokens are signed with
func GetSessionSecret(logger *zap.Logger) string {
	return readSecret(logger, "SESSION_JWT_SECRET", "SESSION_JWT_SECRET_FILE", "", "")
}

// GetValidatorAPIKey returns the API key sent to the HTTP license validator
func GetValidatorAPIKey(logger *zap.Logger) string {
	return readSecret(logger, "LICENSE_API_KEY", "LICENSE_API_KEY_FILE", "", "")
}

// GetValidatorJWTSecret returns the secret used to mint service tokens for the HTTP validator
func GetValidatorJWTSecret(logger *zap.Logger) string {
	return readSecret(logger, "LICENSE_JWT_SECRET", "LICENSE_JWT_SECRET_FILE", "", "")
}

// GetAdminToken returns the bearer token protecting administrative endpoints
func GetAdminToken(logger *zap.Logger) string {
	return readSecret(logger, "ROUTE_GUARD_ADMIN_TOKEN", "ROUTE_GUARD_ADMIN_TOKEN_FILE", "", "")
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}
