/*
Package session implements the live-session registry.

It tracks the sessions currently attached to this process and provides
each one an exclusive execution slot, so that concurrent commands for
the same session are strictly serialized while distinct sessions proceed
in parallel.
*/
package session
