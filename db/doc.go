/*
Package db handles database connection and schema creation.

# Tables

  - participant: identity, unlock frontier, optional display name, and
    the pending-vote tuple for an unresolved group-choice round
  - stage_clear: cumulative clear counter per stage
  - clear_event: per-stage arrival list for the leaderboard
  - vote_round: one row per (group, stage, window) voting round, holding
    the permanently recorded outcome once resolved
  - vote_count: per-option tallies within a round

# Drivers

Open selects the driver from Config.DatabaseType: modernc.org/sqlite
(pure Go, default, used by tests) or lib/pq. All SQL in the application
is written in the overlap of the two dialects, with $1-style
placeholders and explicit timestamps bound from Go.

	conn, err := db.Open(cfg)
	err = db.CreateSchema(conn)
*/
package db
