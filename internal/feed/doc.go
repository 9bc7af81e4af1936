// Package feed generates synthetic row update streams for demos and load tests.
//
// A Producer picks keys according to a weight distribution, emits updates (and
// occasionally removes) at a fixed rate, and hands them to a Publisher that writes
// them to NATS subjects or a JetStream KV bucket.
package feed
