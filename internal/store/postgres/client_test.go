package postgres

import (
	"testing"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{"explicit", ClientConfig{DSN: "postgres://x@y/z", Host: "ignored"}, "postgres://x@y/z"},
		{"defaults", ClientConfig{Host: "db", Database: "optcalc", User: "u", Password: "p"},
			"postgres://u:p@db:5432/optcalc?sslmode=disable"},
		{"ssl", ClientConfig{Host: "db", Port: 6543, Database: "d", User: "u", Password: "p", SSLMode: "require"},
			"postgres://u:p@db:6543/d?sslmode=require"},
	}
	for _, tt := range tests {
		if got := DSN(tt.cfg); got != tt.want {
			t.Errorf("%s: DSN = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	if len(names) == 0 || names[0] != "001_shared_states.sql" {
		t.Errorf("migrations = %v", names)
	}
}
