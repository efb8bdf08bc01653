// Package dialogue drives the requester conversation.
//
// Transition is a pure function of (Session, Event) that yields the next
// Session and an Outcome listing prompts to show and, on confirmation, the
// finished request to hand to the dispatcher. Sessions owns the per-endpoint
// state table and serializes events of one endpoint. Classify turns
// transport updates into Events and Render turns Prompts into text plus a
// keyboard.
package dialogue
