// Package password implements CRUD over the single JSON-encoded password
// collection. The public listing projection omits the secret value; a
// single-record fetch includes it.
package password
