/*
Package router implements the command dispatch layer.

The Router holds the registry of command names to handlers, resolves
the session an envelope addresses, acquires that session's exclusive
execution slot, and invokes the handler. It is the single place where
dispatch failures become wire-level error responses: no handler error
or panic ever escapes Dispatch unclassified.
*/
package router
