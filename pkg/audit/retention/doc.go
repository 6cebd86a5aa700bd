// Package retention deletes audit records that are too old or too many.
// Prune is run on a cron schedule by the maintenance scheduler.
package retention
