package postgres

import (
	"testing"
)

func TestNewPinsTallySchema(t *testing.T) {
	s := New("host=localhost dbname=habits")
	if s.Schema() != "tally" {
		t.Errorf("Schema() = %q, want tally", s.Schema())
	}
	if s.connStr != "host=localhost dbname=habits search_path=tally" {
		t.Errorf("connStr = %q", s.connStr)
	}
}

func TestNewWithSchemaIsolatesTables(t *testing.T) {
	s := New("postgres://tally@localhost/habits", WithSchema("tally_test"))
	if s.Schema() != "tally_test" {
		t.Errorf("Schema() = %q, want tally_test", s.Schema())
	}
	if s.connStr != "postgres://tally@localhost/habits?search_path=tally_test" {
		t.Errorf("connStr = %q", s.connStr)
	}
}

func TestNewFollowsExistingSearchPath(t *testing.T) {
	s := New(`host=localhost search_path='"habits", public'`, WithSchema("ignored"))
	if s.Schema() != "habits" {
		t.Errorf("Schema() = %q, want habits", s.Schema())
	}
}

func TestConfigPathHidesConnectionString(t *testing.T) {
	s := New("postgres://tally@db.internal/habits")
	if got := s.GetConfigPath(); got != "postgresql" {
		t.Errorf("GetConfigPath() = %q", got)
	}
}

func TestMigrationsRequireConnection(t *testing.T) {
	if _, err := New("host=localhost").Migrations(); err == nil {
		t.Error("expected error before Init/Load")
	}
}
