/*
Package session manages editing sessions: one undo stack per open document.

The Manager hydrates a stack from a HistoryStore when a document is opened, persists it on
save and close, and serializes access per document with reference-counted local locks and
an optional distributed lock, so two replicas never write the same history at once.
*/
package session
