// Package main (cmd/license-server) serves hardware-bound license key
// validation over HTTP.
//
// Configuration comes from the environment, optionally preloaded from a
// .env file (see --env-file). STORE_BACKEND selects where license records
// live: mongo (default), postgres, sqlite or memory. If the store cannot be
// reached at startup the server still starts; POST /validate then answers
// 503 and /readyz reports not ready.
//
// Endpoints:
//
//	GET  /          status banner
//	POST /validate  {"key": "...", "hwid": "..."}
//	GET  /livez     liveness
//	GET  /readyz    readiness, including a store ping
//	GET  /drain     mark not ready ahead of shutdown
//	GET  /undrain   mark ready again
//
// Prometheus metrics are served on METRICS_ADDR (or --metrics-addr) when set.
//
// The memory backend reads its records from SEED_FILE, a JSON array of
// {"key", "hwid", "duration_days", "activation_date"} documents.
//
// Example usage:
//
//	STORE_BACKEND=mongo MONGODB_URI=mongodb://localhost:27017 license-server --log-json
package main
