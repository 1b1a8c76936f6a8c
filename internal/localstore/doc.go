// Package localstore is the on-device side cache: a small embedded SQLite database with two
// tables, FileData (an echo of persisted file records) and user_profile_image.
//
// Lookups go by primary key or unique column; there are no multi-row transactions. When the
// schema version stored in the database differs from SchemaVersion, every table is dropped and
// recreated.
//
// Typical Usage
//
//	store, _ := localstore.Open(ctx, "file:scanshare.db")
//	_ = store.Insert(ctx, &models.FileData{Filename: "report.pdf", FilePath: "files/report.pdf"})
//	fd, _ := store.GetByFilename(ctx, "report.pdf")
package localstore
