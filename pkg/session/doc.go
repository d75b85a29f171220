/*
Package session implements session management and persistence orchestration.

It provides high-level abstractions for handling concurrent access to agent
sessions across multiple replicas, integrating in-process locking with an
optional distributed locker and long-term storage adapters. Terminated
sessions are archived, not discarded, so every attempt of every instruction
stays explainable.
*/
package session
