// Package keywords manages the lifecycle of tracked keywords.
//
// A keyword is ACTIVE, PAUSED or ARCHIVED. Archiving soft-deletes the
// keyword's articles and returning to ACTIVE restores exactly those. Any
// transition that enters or leaves ACTIVE queues an index rebuild without
// waiting for it.
package keywords
