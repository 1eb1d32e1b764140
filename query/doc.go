// Package query is the read side of jobcore. It answers status and
// progress questions without taking row locks, so readers observe the
// last committed state and never block command handling.
//
//	svc := query.NewService(store)
//	p, err := svc.Progress(ctx, jobID)
//	fmt.Printf("%s %.1f%%\n", p.Status, p.Percentage)
package query
