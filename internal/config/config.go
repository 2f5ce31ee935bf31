// Package config loads the server's JSON configuration document into a
// typed Settings value, filling in the reference implementation's
// documented defaults for any key left unset.
package config

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
)

// Settings is the full, typed configuration consumed by the server
// facade, the master reactor, and the DB pool.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Database DatabaseSettings `json:"database"`
	Pool     PoolSettings     `json:"pool"`
	Log      LogSettings      `json:"log"`
}

type ServerSettings struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	SubReactorNum int    `json:"subReactorNum"`
	SrcDir        string `json:"srcDir"`
}

type DatabaseSettings struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
}

type PoolSettings struct {
	SQLPoolNum    int `json:"sqlPoolNum"`
	ThreadPoolNum int `json:"threadPoolNum"`
}

type LogSettings struct {
	Path      string `json:"path"`
	Level     string `json:"level"`
	QueueSize int    `json:"queueSize"`
}

// defaults mirrors config.h's GetXxx fallback values exactly.
func defaults() Settings {
	return Settings{
		Server: ServerSettings{
			Host:          "127.0.0.1",
			Port:          8080,
			SubReactorNum: 4,
			SrcDir:        "../resources",
		},
		Database: DatabaseSettings{
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "password",
			DBName:   "webserver",
		},
		Pool: PoolSettings{
			SQLPoolNum:    4,
			ThreadPoolNum: 8,
		},
		Log: LogSettings{
			Path:      "./server.log",
			Level:     "info",
			QueueSize: 1024,
		},
	}
}

// Load reads path and decodes it over the documented defaults, so any
// key the JSON document omits keeps its reference default rather than
// zeroing out.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	s := defaults()
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &s, nil
}
