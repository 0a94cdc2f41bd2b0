// Package sweeper runs the periodic maintenance jobs of the resource table:
// eviction of recycled entries and leak detection. Jobs are scheduled with
// gocron in singleton mode, so a slow sweep is never run twice at once.
package sweeper
