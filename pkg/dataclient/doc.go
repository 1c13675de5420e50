/*
Package dataclient implements the HTTP client for the backing data
service.

Every operation runs with a bounded per-call timeout, retries transient
failures with exponential backoff, and reduces any terminal failure to a
single *Error carrying a Classification. Callers branch on the
classification, never on status codes or transport detail.

Only operations the client can prove idempotent are retried; all the
operations currently exposed qualify (reads, keyed patches, and
id-carrying event appends).
*/
package dataclient
