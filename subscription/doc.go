// Package subscription decodes inbound frames and fans them out by topic.
//
// The package includes:
//
//   - Decode: the inbound wire codec ({topic, key, op, fields})
//   - Match: NATS-style topic patterns ("*" one token, ">" the remaining tokens)
//   - Router: reads raw frames from a transport and delivers decoded updates to
//     every Subscription whose patterns match
//
// A Subscription is a lazy sequence. It survives transport reconnects: while the
// transport is disconnected no frames arrive and Next simply blocks.
package subscription
