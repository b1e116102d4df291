package store

import "strconv"

// Dialect renders the SQL fragments that differ between engines.
type Dialect interface {
	Name() string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder(n int) string
	// ILike renders a case-insensitive LIKE with backslash escapes.
	ILike(col, placeholder string) string
	// Text selects col as text.
	Text(col string) string
	// JSONText selects an address column so that every storage shape
	// (text, text[], json) arrives as parseable text.
	JSONText(col string) string
	// True is the boolean literal.
	True() string
}

var (
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

type postgresDialect struct{}

func (postgresDialect) Name() string               { return "postgres" }
func (postgresDialect) Placeholder(n int) string   { return "$" + strconv.Itoa(n) }
func (postgresDialect) Text(col string) string     { return col + "::text" }
func (postgresDialect) JSONText(col string) string { return "to_json(" + col + ")::text" }
func (postgresDialect) True() string               { return "TRUE" }

func (postgresDialect) ILike(col, placeholder string) string {
	return col + ` ILIKE ` + placeholder + ` ESCAPE '\'`
}

// sqliteDialect folds case with lower(), which only covers ASCII; æ, ø and
// å compare case-sensitively.
type sqliteDialect struct{}

func (sqliteDialect) Name() string               { return "sqlite" }
func (sqliteDialect) Placeholder(int) string     { return "?" }
func (sqliteDialect) Text(col string) string     { return col }
func (sqliteDialect) JSONText(col string) string { return col }
func (sqliteDialect) True() string               { return "1" }

func (sqliteDialect) ILike(col, placeholder string) string {
	return `lower(` + col + `) LIKE lower(` + placeholder + `) ESCAPE '\'`
}
