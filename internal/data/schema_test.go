//go:build unit

package data

import (
	"strings"
	"testing"
)

func TestOwnerSchema_Dialects(t *testing.T) {
	tests := []struct {
		dialect      Dialect
		wantTime     string
		inlineIndex  bool
		wantStmtsMin int
		wantLockRow  string
	}{
		{SQLite, "created_on DATETIME NOT NULL", false, 17, "INSERT OR IGNORE INTO blog_post_category_lock (id) VALUES (1)"},
		{MySQL, "created_on DATETIME(6) NOT NULL", true, 12, "INSERT IGNORE INTO blog_post_category_lock (id) VALUES (1)"},
		{Postgres, "created_on TIMESTAMP NOT NULL", false, 17, "INSERT INTO blog_post_category_lock (id) VALUES (1) ON CONFLICT DO NOTHING"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name, func(t *testing.T) {
			stmts, err := OwnerSchema(tt.dialect, "blog_post")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(stmts) < tt.wantStmtsMin {
				t.Errorf("expected at least %d statements, got %d", tt.wantStmtsMin, len(stmts))
			}
			ddl := strings.Join(stmts, ";\n")

			for _, table := range []string{
				"blog_posts", "blog_post_addresses", "blog_post_contact_numbers", "blog_post_email_addresses",
				"blog_post_metadata", "blog_post_documents", "blog_post_images", "blog_post_videos",
				"blog_post_categories", "blog_post_category_members", "blog_post_category_lock",
			} {
				if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+table+" (") {
					t.Errorf("expected table %s in schema", table)
				}
			}
			if !strings.Contains(ddl, tt.wantLockRow) {
				t.Errorf("expected the tree lock row to be seeded with %q", tt.wantLockRow)
			}
			if !strings.Contains(ddl, tt.wantTime) {
				t.Errorf("expected %q in schema", tt.wantTime)
			}
			if !strings.Contains(ddl, "image_id VARCHAR(80) NOT NULL") {
				t.Error("expected non-null media foreign key")
			}
			if !strings.Contains(ddl, "REFERENCES images(id) ON DELETE RESTRICT") {
				t.Error("expected attachment to reference the shared images table")
			}
			if !strings.Contains(ddl, "REFERENCES blog_post_categories(id) ON DELETE RESTRICT") {
				t.Error("expected self-referencing parent key")
			}

			hasCreateIndex := strings.Contains(ddl, "CREATE INDEX IF NOT EXISTS")
			hasInline := strings.Contains(ddl, "INDEX idx_blog_post_categories_parent (parent_category_id)")
			if tt.inlineIndex && (hasCreateIndex || !hasInline) {
				t.Error("expected inline indexes only")
			}
			if !tt.inlineIndex && (!hasCreateIndex || hasInline) {
				t.Error("expected separate CREATE INDEX statements only")
			}
		})
	}
}

func TestOwnerSchema_TypesAreIsolated(t *testing.T) {
	product, err := OwnerSchema(SQLite, "product")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, stmt := range product {
		if strings.Contains(stmt, "learner") {
			t.Errorf("product schema mentions another owner type: %s", stmt)
		}
	}
}

func TestDialectFor(t *testing.T) {
	for driver, want := range map[string]string{"sqlite3": "sqlite3", "sqlite": "sqlite3", "mysql": "mysql", "pgx": "postgres", "postgres": "postgres"} {
		d, err := DialectFor(driver)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", driver, err)
			continue
		}
		if d.Name != want {
			t.Errorf("%s: expected dialect %s, got %s", driver, want, d.Name)
		}
	}
	if _, err := DialectFor("oracle"); err == nil {
		t.Error("expected an error for an unsupported driver")
	}
}

func TestOwnerTypesHaveTables(t *testing.T) {
	seen := map[string]bool{}
	for _, ownerType := range OwnerTypes() {
		if seen[ownerType] {
			t.Errorf("owner type %s registered twice", ownerType)
		}
		seen[ownerType] = true
		deps := tablesOf(ownerType).dependents()
		if len(deps) != 8 {
			t.Errorf("%s: expected 8 dependent tables, got %d", ownerType, len(deps))
		}
	}
}

func TestRestoreFilters(t *testing.T) {
	tables := tablesOf("learner")
	filters := tables.restoreFilters()
	if len(filters) != len(tables.dependents()) {
		t.Fatalf("expected a filter per dependent table, got %d", len(filters))
	}
	if got := filters[tables.Addresses]; got != "entity_id = ?" {
		t.Errorf("expected a plain owner filter for addresses, got %q", got)
	}
	if got := filters[tables.Members]; !strings.Contains(got, "category_id IN (SELECT id FROM learner_categories WHERE is_deleted = FALSE)") {
		t.Errorf("expected memberships to require a live category, got %q", got)
	}
	if got := filters[tables.Attachments(KindImage)]; !strings.Contains(got, "image_id IN (SELECT id FROM images WHERE is_deleted = FALSE)") {
		t.Errorf("expected image attachments to require live media, got %q", got)
	}
}
