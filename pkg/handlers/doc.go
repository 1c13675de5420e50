/*
Package handlers implements the command handlers the router dispatches.

Two handler groups exist:

  - Interactions: component clicks, screen changes, and transcribed
    text. Thin deterministic transforms plus one durability call each.
  - Tasks: the task lifecycle commands (start, end, skip), driving the
    task state machine in pkg/domain and maintaining the session's
    single-active-task invariant.

Both groups persist through the ports.DataService and, when a write
exhausts its retry budget, hand the failed write to the ports.WriteSpool
for background reconciliation instead of losing it.
*/
package handlers
