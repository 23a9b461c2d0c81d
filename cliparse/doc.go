/*
Package cliparse handles server configuration from CLI flags and
environment variables.

CLI flags take precedence; environment variables are the fallback. The
admin password is required, everything else has a sensible default. A
sqlite database file in the working directory is used when no DATABASE_URL
is given, which is how local development and tests run.

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Settings:

  - -p / PORT: server port (default 8090)
  - -d / DATABASE_URL: DSN (default escaperace.db for sqlite)
  - -t / DATABASE_TYPE: sqlite or postgres (default sqlite)
  - --catalog / CATALOG_PATH: JSON stage catalog file
  - --base-url / BASE_URL: public URL used for the admin join QR
  - --admin-password / ADMIN_PASSWORD: required admin password
*/
package cliparse
