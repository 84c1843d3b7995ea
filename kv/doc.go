// Package kv provides a typed get/set facade over a single embedded,
// single-writer key-value store (bbolt). Values are JSON-encoded; callers
// never see the underlying bucket/transaction structure.
//
//	store, err := kv.Open("/var/lib/keybear/db")
//	devices, found, err := kv.Get[[]device.Device](store, "devices")
//	err = kv.Set(store, "devices", devices)
//
// Storage I/O failures and JSON decode failures are returned as distinct
// error kinds so callers can map them independently onto the 500-class
// responses the server surfaces for either failure mode.
package kv
