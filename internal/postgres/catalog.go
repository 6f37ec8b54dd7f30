package postgres

// Catalog queries used for schema introspection. System schemas are
// excluded; columns come back in physical (attnum) order per table.
const (
	QueryCountTables = `
		SELECT COUNT(*)
		FROM pg_catalog.pg_tables
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')`

	QueryListColumns = `
		SELECT t.tablename,
		       a.attname AS column_name,
		       pg_catalog.format_type(a.atttypid, a.atttypmod) AS data_type
		FROM pg_catalog.pg_tables t
		JOIN pg_catalog.pg_attribute a ON t.tablename = a.attrelid::regclass::text
		WHERE t.schemaname NOT IN ('pg_catalog', 'information_schema')
		  AND a.attnum > 0
		  AND NOT a.attisdropped
		ORDER BY t.tablename, a.attnum`
)
