// Package jobs provides scheduled background tasks for the dispatch service.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3.
//
// # Available Jobs
//
// 1. OutboxRelayJob - publishes committed domain events from the outbox to Kafka in seq order
// 2. PoolDispatchJob - retries automatic assignment for packages waiting in the pool
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	relay := jobs.NewOutboxRelayJob(outbox, publisher, "@every 1s", 100, m, logger)
//	dispatch := jobs.NewPoolDispatchJob(packages, assigner, "*/5 * * * * *", 50, m, logger)
//	jobManager := jobs.NewJobManager(logger, relay, dispatch)
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Scheduling
//
// Expressions use the seconds field. A tick is skipped while the previous run of the
// same job is still going, so a single process never relays the outbox concurrently.
// Running several relay processes against one database is not supported: SKIP LOCKED
// would let them publish out of order.
//
// # Error Handling
//
// - The dispatch job counts expected business outcomes (no courier, package left the pool)
// - The relay job logs publish errors and leaves unpublished messages for the next run
// - Failed job starts will stop any already running jobs
package jobs
