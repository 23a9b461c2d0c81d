/*
Package models defines the request and response types for the API.

# Conventions

Every success payload carries "ok": true, mirroring what the game client
expects. Errors use ErrorResponse with the HTTP status text plus a
human-readable message.

The Problem type is the client-facing projection of a catalog stage: it
ships per-type client config (tap settings, choice options) but includes
the canonical answer only when the participant has already cleared the
stage.

Vote results use the four status strings PENDING, WIN, LOSE, DRAW, which
the client polls for after casting a group-choice vote.
*/
package models
