// Package server implements the Loopback Guard, the Encrypted Request
// Pipeline, and the Route Surface: the HTTP-facing layer that wires
// incoming requests to the device and password business handlers.
package server
