package models

import "time"

// ArtifactRecord remembers the output of an external computation under the
// digest of its prompt and producer.
type ArtifactRecord struct {
	Digest     string    `json:"digest"`
	ProducerID string    `json:"producer_id"`
	Payload    string    `json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
}

// Fresh reports whether the record is younger than window at now.
func (r ArtifactRecord) Fresh(now time.Time, window time.Duration) bool {
	return now.Sub(r.CreatedAt) < window
}
