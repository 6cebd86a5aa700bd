// Package maintenance runs periodic housekeeping on cron schedules: pruning
// idle pooled instances and applying audit retention. Each run is reported
// to a Reporter, normally the metrics collector.
package maintenance
