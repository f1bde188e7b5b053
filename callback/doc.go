// Package callback routes "participant A touched participant B" contacts into
// callbacks registered on A, keyed by the capabilities and labels of B.
//
// A Registry belongs to exactly one participant (its owner, "self"). Clients
// register callbacks under a capability key, a label key or both, and choose
// whether the callback receives the owner (ToSelf) or the participant that
// made contact (ToOther). The Collision Source calls OnContact once per
// contact start.
//
// Dispatch order is fixed: capability keys in the order they were first
// registered, then label keys in the order they were first registered. Within
// one key every ToSelf callback runs before every ToOther callback, each list
// in registration order.
//
// A Registry is not safe for concurrent use. Registration and dispatch must
// happen on the goroutine that steps the world.
package callback
