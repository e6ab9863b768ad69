// Package app provides the application service layer.
//
// Orchestrates the draw pipeline: validate, persist, then deliver either to
// local quadrant subscribers or to the broker topic. Also hosts the relay
// that forwards broker messages to local connections, the inactivity sweeper
// and the supervisor that runs and stops all long-lived loops.
package app
