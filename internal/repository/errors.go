// Package repository contains data access logic separated from HTTP
// handlers. Sentinel errors shared by several repositories live here so
// handlers can translate them to HTTP statuses without string matching.
package repository

import "errors"

// ErrNotFound is returned when a catalog entity (provider, series,
// course, image) does not exist. Handlers map it to the API's
// model-not-exist response.
var ErrNotFound = errors.New("model not found")
