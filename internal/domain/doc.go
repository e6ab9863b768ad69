// Package domain defines the core canvas types, wire envelopes and the
// consumer-side interfaces shared across packages.
//
// No implementation code lives here, only contracts. Keeping the interfaces
// on the consumer side prevents circular imports between app and adapters.
package domain
