// Package postgres implements the store using pgx/v5 with raw SQL.
// Features: SELECT ... FOR UPDATE row locks held for the unit of work,
// a unique correlation id index for creation dedup, COPY bulk item
// inserts, and embedded SQL migrations.
package postgres
