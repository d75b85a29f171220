/*
Package ports defines the driven ports (interfaces) for the Maquette agent.

These interfaces decouple the correction loop from its collaborators, allowing
the agent to work with different reasoning services, host transports, and
storage backends.

# Key Interfaces

  - Planner: Produces the next script (or final answer) from the turn history.
  - CommandChannel: Carries execute and fetch verbs to the host bridge.
  - Surface: The host-side execution surface behind the bridge.
  - SessionStore: Persists sessions, including terminated ones.
  - DistributedLocker: Provides distributed locking for concurrent session access.
*/
package ports
