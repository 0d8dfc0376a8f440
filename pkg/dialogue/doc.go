// Package dialogue implements the turn controller of the recipe assistant.
//
// A Controller owns one conversation. Each utterance is sanitized, classified into
// an intent and executed as a single turn: selections and precondition failures
// settle locally, while searches, follow-ups and modifications wait on the search
// service. Only one such network turn may be in flight; other input is rejected
// until it settles, except Reset, which is always accepted and makes the
// outcome of the in-flight turn stale.
//
// Render events flow to a ports.EventSink. The controller never renders anything.
package dialogue
