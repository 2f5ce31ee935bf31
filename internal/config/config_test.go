package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, `{"server": {"port": 9090}}`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Server.Port != 9090 {
		t.Fatalf("port = %d, want 9090", s.Server.Port)
	}
	if s.Server.Host != "127.0.0.1" {
		t.Fatalf("host default not applied: %q", s.Server.Host)
	}
	if s.Server.SubReactorNum != 4 {
		t.Fatalf("subReactorNum default not applied: %d", s.Server.SubReactorNum)
	}
	if s.Database.Port != 3306 || s.Database.User != "root" {
		t.Fatalf("database defaults not applied: %+v", s.Database)
	}
	if s.Pool.SQLPoolNum != 4 || s.Pool.ThreadPoolNum != 8 {
		t.Fatalf("pool defaults not applied: %+v", s.Pool)
	}
	if s.Log.Path != "./server.log" || s.Log.QueueSize != 1024 {
		t.Fatalf("log defaults not applied: %+v", s.Log)
	}
}

func TestLoadFullySpecified(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"host": "0.0.0.0", "port": 80, "subReactorNum": 2, "srcDir": "/srv/www"},
		"database": {"host": "db", "port": 3307, "user": "u", "password": "p", "dbname": "d"},
		"pool": {"sqlPoolNum": 10, "threadPoolNum": 20},
		"log": {"path": "/var/log/ember.log", "level": "debug", "queueSize": 2048}
	}`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Server.SrcDir != "/srv/www" || s.Database.Host != "db" || s.Pool.SQLPoolNum != 10 || s.Log.Level != "debug" {
		t.Fatalf("got %+v", s)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
