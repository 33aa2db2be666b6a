package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

// Placeholder values shipped in .env.example. While either setting still
// carries its placeholder, the app runs against the local mock store.
const (
	RemoteURLPlaceholder = "https://your-project.supabase.co"
	RemoteKeyPlaceholder = "your-anon-key"
)

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("MOTOCREW_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("MOTOCREW_DEBUG") == "true"
}

func GetDBFolderPath() string {
	dbFolderPath := os.Getenv("MOTOCREW_DB_FOLDER")
	if dbFolderPath == "" {
		dbFolderPath = "/etc/motocrew"
	}
	return dbFolderPath
}

func GetDBPath() string {
	return fmt.Sprintf("%s/%s.db", GetDBFolderPath(), GetName())
}

func GetLogFolder() string {
	logFolderPath := os.Getenv("MOTOCREW_LOG_FOLDER")
	if logFolderPath == "" {
		logFolderPath = "/var/log"
	}
	return logFolderPath
}

// GetRemoteURL returns the Supabase project URL as provided, placeholder
// included. Deciding whether it is usable is the store gate's job.
func GetRemoteURL() string {
	url := os.Getenv("SUPABASE_URL")
	if url == "" {
		url = RemoteURLPlaceholder
	}
	return strings.TrimRight(url, "/")
}

// GetRemoteKey returns the Supabase anon API key as provided.
func GetRemoteKey() string {
	key := os.Getenv("SUPABASE_KEY")
	if key == "" {
		key = RemoteKeyPlaceholder
	}
	return key
}

// GetAIKey returns the Gemini API key. Empty disables AI features.
func GetAIKey() string {
	return os.Getenv("MOTOCREW_AI_KEY")
}
