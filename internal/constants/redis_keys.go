package constants

import "fmt"

// Redis key layout. Every key is namespaced "tv:{module}:{entity}:..." so a
// shared Redis can be swept per module.
const (
	// Set of raw-email MD5s already accepted, guards duplicate submissions.
	KeyIntakeRawMD5Set = "tv:intake:email:raw_md5_set"

	// String raw MD5 -> submission UUID, lets a duplicate point back at the
	// original submission.
	KeyIntakeMD5ToSubmissionFmt = "tv:intake:email:md5_to_submission:%s"

	// Cached Apollo enrichment payload keyed by lowercased contact email.
	KeyEnrichmentContactFmt = "tv:enrichment:contact:%s"

	// Lock held while a digest build is in flight.
	KeyDigestBuildLock = "tv:digest:build:lock"
)

// MD5ToSubmissionKey returns the key mapping a raw-email MD5 to the
// submission that first carried it.
func MD5ToSubmissionKey(md5 string) string {
	return fmt.Sprintf(KeyIntakeMD5ToSubmissionFmt, md5)
}

// EnrichmentContactKey returns the cache key for one contact's enrichment
// payload. Callers lowercase the email so lookups stay stable.
func EnrichmentContactKey(email string) string {
	return fmt.Sprintf(KeyEnrichmentContactFmt, email)
}
