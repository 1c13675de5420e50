/*
Package ports defines the driven ports (interfaces) for the vox agent.

These interfaces decouple the command handlers from external
implementations, allowing the agent to work with different data service
clients, spool backends, and notification sinks.

# Key Interfaces

  - DataService: the backing data service every durable read/write goes
    through (study data, session patches, interaction events).
  - WriteSpool: queue of writes that exhausted their retry budget and
    wait for background reconciliation.
  - Notifier: fire-and-forget operational notices (terminal task
    transitions, unrecoverable persistence failures).
*/
package ports
