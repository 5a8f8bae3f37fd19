package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingMigrations(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		applied map[string]bool
		want    []string
	}{
		{
			name:  "nothing applied runs everything in order",
			files: []string{"002_create_calculations.sql", "001_create_users.sql"},
			want:  []string{"001_create_users.sql", "002_create_calculations.sql"},
		},
		{
			name:    "applied files are skipped",
			files:   []string{"001_create_users.sql", "002_create_calculations.sql", "003_add_index.sql"},
			applied: map[string]bool{"001_create_users.sql": true, "002_create_calculations.sql": true},
			want:    []string{"003_add_index.sql"},
		},
		{
			name:    "everything applied leaves nothing pending",
			files:   []string{"001_create_users.sql"},
			applied: map[string]bool{"001_create_users.sql": true},
			want:    []string{},
		},
		{
			name:  "non-sql files are ignored",
			files: []string{"001_create_users.sql", "README.md", ".gitkeep"},
			want:  []string{"001_create_users.sql"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pendingMigrations(tc.files, tc.applied))
		})
	}
}
