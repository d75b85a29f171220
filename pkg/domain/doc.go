/*
Package domain contains the core domain models for the Maquette agent.

It defines the entities of the self-correction loop: Sessions, Turns,
Scripts, execution outcomes and their classification. This package is kept
pure and free of external dependencies like I/O or persistence, following
Hexagonal Architecture principles.

# Key Entities

  - Session: Binds one instruction to its ordered, append-only turn history.
  - Turn: One plan/execute/verify attempt, with its script and outcome.
  - ExecutionResult: What the host reported back for a script.
  - ErrorKind: The closed classification of a turn's outcome.
  - ContextOverride: Host UI context pinned for a category of operations.
  - Observation: Rendered image or captured log pulled from the host.
*/
package domain
