// Package db wraps pgx connection pooling, goose migrations and
// transaction handling.
//
// Connect retries with linear backoff so the service survives a database that
// is still starting. Migrate runs goose over any fs.FS, typically an embed.FS
// holding the SQL files:
//
//	pool, err := db.Connect(ctx, cfg.DB)
//	if err != nil {
//		return err
//	}
//	if err := db.Migrate(ctx, pool, migrations.FS, cfg.DB.MigrationsTable, log); err != nil {
//		return err
//	}
//
// Errors are sentinel values joined with the driver error via errors.Join.
package db
