// Package queue defines message payloads exchanged over the message broker.
package queue

// AssetCleanupEvent is published when a best-effort blob deletion failed
// during the request. The consumer retries the delete in the background;
// Attempts counts retries so a permanently failing key is eventually
// dropped instead of looping forever.
type AssetCleanupEvent struct {
	DeletionKey string `json:"deletion_key"`
	URL         string `json:"url"`
	Attempts    int    `json:"attempts"`
	RequestedAt string `json:"requested_at"`
}
