// Package operation performs one HTTP request and exposes its outcome as a
// typed Response whose payload is already converted to facts.
//
// An Operation is single-use: SendRequest makes exactly one attempt, with
// no retry, and Response is only valid once SendRequest has returned.
// Network failures are recorded in the Response rather than returned, so
// callers always get a Response to inspect. Only invalid input and
// unserializable outbound payloads fail synchronously.
package operation
