/*
Package auth provides identity and admin credential helpers.

Participants are identified by opaque session IDs. Clients normally
generate their own and keep them in localStorage; NewSessionID issues a
server-side one in the same format for clients that ask.

Admin endpoints are gated by a single shared password delivered in the
X-Admin-Password header. CheckAdminPassword compares in constant time
and rejects an empty configured password outright.
*/
package auth
