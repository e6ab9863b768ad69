// Package registry tracks live client connections: id allocation, bounded
// outboxes, activity timestamps, inactivity sweeps and removal.
//
// Lock order is Registry before quadrant.Index. Neither lock is held across
// a channel send or any I/O.
package registry
