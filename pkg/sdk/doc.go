// Package expanders360 embeds the expanders360 matching engine in another Go program.
//
// The client talks to the relational store directly (Postgres or SQLite) and,
// optionally, to a Redis Stack instance holding research documents:
//
//	client, err := expanders360.New(ctx,
//	    expanders360.WithPostgres("postgres://localhost/expanders360?sslmode=disable"),
//	    expanders360.WithRedis("localhost:6379", ""),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	matches, _ := client.Rebuild(ctx, projectID)
//	report, _ := client.TopVendorsByCountry(ctx, 30)
//
// Without WithRedis every country reports a document count of 0.
package expanders360
