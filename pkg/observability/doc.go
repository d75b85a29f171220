/*
Package observability provides Prometheus instrumentation for the correction
loop. A Collector registers the loop's metrics on a registry and exposes a
LifecycleHooks set that feeds them, so wiring is one option on the agent.
*/
package observability
