// Package api exposes the gateway over HTTP.
//
// POST /send_command takes {"command":"<verb>(<argument>)"} and answers with
// {"status","message","latency"}. Requests are served one at a time: a
// second command waits until the first response has been written.
// GET /events streams gateway events and GET /health reports the session.
package api
