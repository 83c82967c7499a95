// Package suntan embeds the migration pipeline in a Go program: read a
// document store, coerce every record to a declared schema and write the
// result into a full-text index, then search and reconcile it.
//
//	client, _ := suntan.Open(ctx, "schema.yaml", suntan.WithBleve("data/posts.bleve"))
//	defer client.Close()
//
//	src, _ := suntan.JSONL("dump/", 1000)
//	stats, err := client.Migrate(ctx, src)
//	report := client.Verify(ctx, stats, suntan.Query{Text: "lovelace"})
//	res, _ := client.Search(ctx, "ada", nil, 10)
package suntan
