/*
Package router defines HTTP routes for the escape race API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cat, cfg)

# Endpoints

Health:

	GET /health

Stage progression (public):

	POST /api/session - Create a server-issued session
	GET  /api/problem - Fetch stage content (or a status probe)
	POST /api/answer  - Submit an answer
	POST /api/reset   - Reset one participant to stage 1

Player registration (public):

	POST /api/player/register - Set a leaderboard display name

Group-choice voting (public):

	POST /api/choice/vote   - Cast a vote in the current round
	POST /api/choice/result - Poll for the round outcome

Admin (requires X-Admin-Password):

	GET  /api/admin/stats - Per-stage counters and rosters
	POST /api/admin/reset - Wipe all game data
	GET  /api/admin/qr    - Join URL as a PNG QR code

# Handler Initialization

The router creates handler instances with dependency injection:

	progressionHandler := handlers.NewProgressionHandler(db, cat, cfg)
	voteHandler := handlers.NewVoteHandler(db, cat, cfg)
	playerHandler := handlers.NewPlayerHandler(db, cfg)
	adminHandler := handlers.NewAdminHandler(db, cat, cfg)

All handlers receive the database connection, the stage catalog, and
configuration (the player handler needs no catalog).
*/
package router
