// Package auth implements optional bearer-token protection for the gateway.
//
// Tokens are JWTs signed with HS256 (shared secret) or RS256 (PEM public
// key). A token carries a subject and scopes; sending commands needs the
// "control" scope and subscribing to the event stream needs "events".
package auth
