/*
Package reconcile replays spooled durable writes against the data
service until they land.

Commands never block on the data service: when a write exhausts the
data client's retry budget the session keeps its in-memory state and
the write goes to the spool. The Reconciler is the background loop that
converges the durable store afterwards, backing off while the service
stays down.
*/
package reconcile
