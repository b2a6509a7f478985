/*
main.go - Application entry point

PURPOSE:
  Starts the worktime command line. "serve" runs the HTTP API; the other
  commands work directly against the configured store.

COMMANDS:
  serve                        HTTP API, live stream, period close scheduler
  balance SUBJECT              Print the current balance
  record SUBJECT start|end     Record an event
  holidays [SUBJECT]           List the holidays of a year
  config init [PATH]           Write the default configuration

CONFIGURATION:
  -c/--config  YAML file (default: worktime.yaml, optional)
  WORKTIME_*   Environment overrides, e.g. WORKTIME_STORAGE_PATH

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections, wait for active requests
  3. Stop the live clocks
  4. Close the store

SEE ALSO:
  - config/config.go: Configuration schema
  - api/server.go: Router configuration
*/
package main

func main() {
	Execute()
}
