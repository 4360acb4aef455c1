// Package advisor wraps the external generative-AI text service behind a
// chat-style API. The service is an external black box consumed via
// request/response; every call is request-scoped, honors a bounded
// timeout, and degrades to a deterministic fallback answer when the
// backend is unreachable or misbehaving.
package advisor
