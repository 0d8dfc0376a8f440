/*
Package session owns the lifecycle of conversations.

The Manager serializes access to persisted sessions (per-session local locks,
optionally backed by a distributed lock across replicas) and keeps one
dialogue.Controller per live conversation. Controllers are restored from the
store when first opened, and every applied turn is written back.
*/
package session
