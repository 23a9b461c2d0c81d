/*
Package middleware provides HTTP middleware and response helpers.

  - WithLogging: request start/completion logging via slog
  - WithAdminAuth: X-Admin-Password gate for admin endpoints
  - CORS: permissive cross-origin handling for the game frontend
  - JSONResponse / ErrorResponse: JSON writing helpers
  - ParseJSONBody: request body decoding
  - GetClientIP: X-Forwarded-For / X-Real-IP aware client address
*/
package middleware
