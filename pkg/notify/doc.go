/*
Package notify implements the fire-and-forget notification sink.

The Slack notifier posts operational notices (terminal task
transitions, unrecoverable persistence failures) to a channel through a
single background worker, so posting never blocks a session's
execution slot. Failures are logged and dropped; a notification is
never worth failing a command over.
*/
package notify
