package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openannounce/announce-backend/pkg/migrate"
)

func TestMediaMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_media.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no media migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS media",
		"gcs_key TEXT NOT NULL UNIQUE",
		"FOREIGN KEY (announcement_id) REFERENCES announcements(id) ON DELETE SET NULL",
		"CHECK (size_bytes >= 0)",
		"DROP TABLE IF EXISTS media",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMediaItemsMigrationOrdersByPosition(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_media_items.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no media_items migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"UNIQUE (announcement_id, slot, position)",
		"FOREIGN KEY (media_id) REFERENCES media(id) ON DELETE CASCADE",
		"CHECK (position >= 0)",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateMigrationsDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
