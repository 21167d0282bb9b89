package data

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/jmoiron/sqlx"
)

// Dialect holds the column types and DDL quirks of one database engine.
type Dialect struct {
	Name          string
	ID            string
	String        string
	Text          string
	Bool          string
	Time          string
	BigInt        string
	Int           string
	InlineIndexes bool   // MySQL has no CREATE INDEX IF NOT EXISTS
	InsertIgnore  string // format of an insert that skips an existing key
}

var (
	SQLite = Dialect{Name: "sqlite3", ID: "VARCHAR(80)", String: "VARCHAR(255)", Text: "TEXT",
		Bool: "BOOLEAN", Time: "DATETIME", BigInt: "BIGINT", Int: "INTEGER",
		InsertIgnore: "INSERT OR IGNORE INTO %s (id) VALUES (1)"}
	MySQL = Dialect{Name: "mysql", ID: "VARCHAR(80)", String: "VARCHAR(255)", Text: "TEXT",
		Bool: "BOOLEAN", Time: "DATETIME(6)", BigInt: "BIGINT", Int: "INT", InlineIndexes: true,
		InsertIgnore: "INSERT IGNORE INTO %s (id) VALUES (1)"}
	Postgres = Dialect{Name: "postgres", ID: "VARCHAR(80)", String: "VARCHAR(255)", Text: "TEXT",
		Bool: "BOOLEAN", Time: "TIMESTAMP", BigInt: "BIGINT", Int: "INTEGER",
		InsertIgnore: "INSERT INTO %s (id) VALUES (1) ON CONFLICT DO NOTHING"}
)

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	case "postgres", "pgx":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

type schemaData struct {
	D     Dialect
	Owner string
	T     ownerTables
	Media []MediaKind
}

var ownerSchemaTmpl = template.Must(template.New("owner").Funcs(template.FuncMap{
	"audit": func(d Dialect) string {
		return strings.Join([]string{
			"created_by " + d.String + " NOT NULL",
			"created_on " + d.Time + " NOT NULL",
			"last_modified_by " + d.String,
			"last_modified_on " + d.Time,
			"is_deleted " + d.Bool + " NOT NULL DEFAULT FALSE",
			"deleted_on " + d.Time,
			"row_version " + d.BigInt + " NOT NULL DEFAULT 1",
		}, ",\n\t")
	},
	"createIndex": func(d Dialect, table, name, cols string) string {
		if d.InlineIndexes {
			return ""
		}
		return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s);\n", name, table, cols)
	},
	"seedRow": func(d Dialect, table string) string {
		return fmt.Sprintf(d.InsertIgnore, table)
	},
	"inline": func(d Dialect, name, cols string) string {
		if !d.InlineIndexes {
			return ""
		}
		return fmt.Sprintf(",\n\tINDEX %s (%s)", name, cols)
	},
}).Parse(`
CREATE TABLE IF NOT EXISTS {{.T.Owners}} (
	id {{.D.ID}} PRIMARY KEY,
	display_name {{.D.String}} NOT NULL,
	{{audit .D}}
);

CREATE TABLE IF NOT EXISTS {{.T.Addresses}} (
	id {{.D.ID}} PRIMARY KEY,
	entity_id {{.D.ID}} NOT NULL,
	is_default {{.D.Bool}} NOT NULL DEFAULT FALSE,
	address_type {{.D.String}} NOT NULL,
	line1 {{.D.String}} NOT NULL,
	line2 {{.D.String}} NOT NULL,
	city {{.D.String}} NOT NULL,
	province {{.D.String}} NOT NULL,
	postal_code {{.D.String}} NOT NULL,
	country {{.D.String}} NOT NULL,
	{{audit .D}},
	FOREIGN KEY (entity_id) REFERENCES {{.T.Owners}}(id) ON DELETE CASCADE{{inline .D (printf "idx_%s_entity" .T.Addresses) "entity_id"}}
);
{{createIndex .D .T.Addresses (printf "idx_%s_entity" .T.Addresses) "entity_id"}}
CREATE TABLE IF NOT EXISTS {{.T.ContactNumbers}} (
	id {{.D.ID}} PRIMARY KEY,
	entity_id {{.D.ID}} NOT NULL,
	is_default {{.D.Bool}} NOT NULL DEFAULT FALSE,
	number_type {{.D.String}} NOT NULL,
	number {{.D.String}} NOT NULL,
	{{audit .D}},
	FOREIGN KEY (entity_id) REFERENCES {{.T.Owners}}(id) ON DELETE CASCADE{{inline .D (printf "idx_%s_entity" .T.ContactNumbers) "entity_id"}}
);
{{createIndex .D .T.ContactNumbers (printf "idx_%s_entity" .T.ContactNumbers) "entity_id"}}
CREATE TABLE IF NOT EXISTS {{.T.EmailAddresses}} (
	id {{.D.ID}} PRIMARY KEY,
	entity_id {{.D.ID}} NOT NULL,
	is_default {{.D.Bool}} NOT NULL DEFAULT FALSE,
	email_type {{.D.String}} NOT NULL,
	email {{.D.String}} NOT NULL,
	{{audit .D}},
	FOREIGN KEY (entity_id) REFERENCES {{.T.Owners}}(id) ON DELETE CASCADE{{inline .D (printf "idx_%s_entity" .T.EmailAddresses) "entity_id"}}
);
{{createIndex .D .T.EmailAddresses (printf "idx_%s_entity" .T.EmailAddresses) "entity_id"}}
CREATE TABLE IF NOT EXISTS {{.T.Metadata}} (
	id {{.D.ID}} PRIMARY KEY,
	entity_id {{.D.ID}} NOT NULL,
	meta_key {{.D.String}} NOT NULL,
	meta_value {{.D.Text}} NOT NULL,
	{{audit .D}},
	UNIQUE (entity_id, meta_key),
	FOREIGN KEY (entity_id) REFERENCES {{.T.Owners}}(id) ON DELETE CASCADE
);
{{range $kind := .Media}}
CREATE TABLE IF NOT EXISTS {{$.T.Attachments $kind}} (
	id {{$.D.ID}} PRIMARY KEY,
	entity_id {{$.D.ID}} NOT NULL,
	{{$kind.Column}} {{$.D.ID}} NOT NULL,
	sort_order {{$.D.Int}} NOT NULL DEFAULT 0,
	selector {{$.D.String}},
	{{audit $.D}},
	FOREIGN KEY (entity_id) REFERENCES {{$.T.Owners}}(id) ON DELETE CASCADE,
	FOREIGN KEY ({{$kind.Column}}) REFERENCES {{$kind.Table}}(id) ON DELETE RESTRICT{{inline $.D (printf "idx_%s_entity" ($.T.Attachments $kind)) "entity_id, sort_order"}}
);
{{createIndex $.D ($.T.Attachments $kind) (printf "idx_%s_entity" ($.T.Attachments $kind)) "entity_id, sort_order"}}{{createIndex $.D ($.T.Attachments $kind) (printf "idx_%s_media" ($.T.Attachments $kind)) $kind.Column}}{{end}}
CREATE TABLE IF NOT EXISTS {{.T.Categories}} (
	id {{.D.ID}} PRIMARY KEY,
	parent_category_id {{.D.ID}},
	name {{.D.String}} NOT NULL,
	description {{.D.Text}} NOT NULL,
	active {{.D.Bool}} NOT NULL DEFAULT TRUE,
	featured {{.D.Bool}} NOT NULL DEFAULT FALSE,
	display_in_main_menu {{.D.Bool}} NOT NULL DEFAULT FALSE,
	display_as_slider_item {{.D.Bool}} NOT NULL DEFAULT FALSE,
	slogan {{.D.String}} NOT NULL,
	sub_slogan {{.D.String}} NOT NULL,
	web_tags {{.D.String}} NOT NULL,
	{{audit .D}},
	FOREIGN KEY (parent_category_id) REFERENCES {{.T.Categories}}(id) ON DELETE RESTRICT{{inline .D (printf "idx_%s_parent" .T.Categories) "parent_category_id"}}
);
{{createIndex .D .T.Categories (printf "idx_%s_parent" .T.Categories) "parent_category_id"}}
CREATE TABLE IF NOT EXISTS {{.T.TreeLock}} (
	id {{.D.Int}} PRIMARY KEY,
	row_version {{.D.BigInt}} NOT NULL DEFAULT 1
);
{{seedRow .D .T.TreeLock}};

CREATE TABLE IF NOT EXISTS {{.T.Members}} (
	id {{.D.ID}} PRIMARY KEY,
	entity_id {{.D.ID}} NOT NULL,
	category_id {{.D.ID}} NOT NULL,
	{{audit .D}},
	UNIQUE (entity_id, category_id),
	FOREIGN KEY (entity_id) REFERENCES {{.T.Owners}}(id) ON DELETE CASCADE,
	FOREIGN KEY (category_id) REFERENCES {{.T.Categories}}(id) ON DELETE RESTRICT{{inline .D (printf "idx_%s_category" .T.Members) "category_id"}}
);
{{createIndex .D .T.Members (printf "idx_%s_category" .T.Members) "category_id"}}`))

// ownerTables names the per-type tables of one owner type.
type ownerTables struct {
	Owners         string
	Addresses      string
	ContactNumbers string
	EmailAddresses string
	Metadata       string
	Categories     string
	TreeLock       string
	Members        string
	prefix         string
}

func tablesOf(ownerType string) ownerTables {
	return ownerTables{
		Owners:         ownerType + "s",
		Addresses:      ownerType + "_addresses",
		ContactNumbers: ownerType + "_contact_numbers",
		EmailAddresses: ownerType + "_email_addresses",
		Metadata:       ownerType + "_metadata",
		Categories:     ownerType + "_categories",
		TreeLock:       ownerType + "_category_lock",
		Members:        ownerType + "_category_members",
		prefix:         ownerType,
	}
}

func tablesFor[E Owner]() ownerTables { return tablesOf(ownerTypeOf[E]()) }

// Attachments names the join table between the owner and media of kind k.
func (t ownerTables) Attachments(k MediaKind) string { return t.prefix + "_" + k.Table() }

// dependents lists every per-type table whose rows hang off an owner via entity_id.
func (t ownerTables) dependents() []string {
	return []string{
		t.Addresses, t.ContactNumbers, t.EmailAddresses, t.Metadata,
		t.Attachments(KindDocument), t.Attachments(KindImage), t.Attachments(KindVideo),
		t.Members,
	}
}

// restoreFilters maps every dependent table to the condition a row must meet to
// be revived with its owner. Rows pointing at a deleted category or media row
// stay deleted.
func (t ownerTables) restoreFilters() map[string]string {
	filters := make(map[string]string, len(t.dependents()))
	for _, table := range t.dependents() {
		filters[table] = "entity_id = ?"
	}
	filters[t.Members] += fmt.Sprintf(" AND category_id IN (SELECT id FROM %s WHERE is_deleted = FALSE)", t.Categories)
	for _, k := range []MediaKind{KindDocument, KindImage, KindVideo} {
		filters[t.Attachments(k)] += fmt.Sprintf(" AND %s IN (SELECT id FROM %s WHERE is_deleted = FALSE)", k.Column(), k.Table())
	}
	return filters
}

// OwnerSchema renders the DDL statements of every per-type table of ownerType.
// The shared media tables must already exist.
func OwnerSchema(d Dialect, ownerType string) ([]string, error) {
	var buf bytes.Buffer
	err := ownerSchemaTmpl.Execute(&buf, schemaData{
		D:     d,
		Owner: ownerType,
		T:     tablesOf(ownerType),
		Media: []MediaKind{KindDocument, KindImage, KindVideo},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render schema for %s: %w", ownerType, err)
	}

	var stmts []string
	for _, stmt := range strings.Split(buf.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

// ApplyOwnerSchemas creates the per-type tables of every given owner type.
// It is idempotent for SQLite and PostgreSQL; for MySQL the tables are created
// with IF NOT EXISTS and their indexes inline.
func ApplyOwnerSchemas(ctx context.Context, db *sqlx.DB, d Dialect, ownerTypes ...string) error {
	for _, ownerType := range ownerTypes {
		stmts, err := OwnerSchema(d, ownerType)
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema for %s: %w", ownerType, err)
			}
		}
	}
	return nil
}
