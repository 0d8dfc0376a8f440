/*
Package observability turns controller and voice lifecycle hooks into
Prometheus metrics and structured log lines.

Both are plain domain.LifecycleHooks values, so they compose with
LifecycleHooks.Merge and never change how a turn behaves.
*/
package observability
