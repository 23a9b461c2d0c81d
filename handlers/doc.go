// Package handlers implements the HTTP handlers for the escape race
// API: stage progression, answer evaluation, group-choice voting,
// player registration, and the admin surface.
//
// The handlers are grouped by concern:
//
//   - ProgressionHandler: sessions, fetching stage content, answer
//     submission and per-participant reset. Progress is a single
//     monotonic frontier per participant; advancing it and bumping the
//     stage clear counter happen in one transaction so arrival ranks
//     stay distinct even under concurrent submissions.
//
//   - VoteHandler: the group-choice rooms. Votes land in clock-aligned
//     rounds (roundID = floor(now/window)*window) so every client
//     agrees on the current round without coordination. Results are
//     poll-based; the first query after the window closes resolves the
//     tally and records the outcome, later queries read it back.
//
//   - PlayerHandler: display-name registration for the leaderboard.
//
//   - AdminHandler: per-stage stats, the full between-events reset, and
//     the join QR code.
//
// All handlers speak JSON via the middleware package and log with
// log/slog. Database access is direct database/sql against either
// sqlite or postgres; SQL is written to the shared dialect subset
// (sequential $N placeholders, no RETURNING, timestamps bound from Go).
package handlers
