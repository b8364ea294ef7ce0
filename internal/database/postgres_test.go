package database

import "testing"

func TestMigrationVersion(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"001_initial_schema.sql", 1},
		{"002_add_indexes.sql", 2},
		{"010_widen_columns.sql", 10},
		{"001_initial_schema.sql.bak", 0},
		{"README.md", 0},
		{"notes.sql", 0},
		{"000_zero.sql", 0},
		{"abc_def.sql", 0},
	}

	for _, tc := range tests {
		if got := migrationVersion(tc.name); got != tc.want {
			t.Errorf("migrationVersion(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}
}
