/*
Package undo implements the undo/redo transaction log that backs every edit made to a
model graph.

A Stack holds an ordered list of Posts, one per undoable user step, and a position
pointing at the last applied Post (-1 when nothing is applied). Editing code mutates the
graph through a ports.Document and, immediately after, registers what it did:

	stack.BeginTransaction("Paste")
	name, _ := doc.CreateEntity(snapshot)
	stack.RegisterAddedEntity(name, snapshot)
	stack.RegisterAddedConnector(ref, connectorSnapshot)

Undo and Redo replay a whole Post against the same Document. Undo does not walk the Post
backwards blindly: value changes are inverted first, then deleted entities are
recreated before the connectors that reference them, and added connectors are removed
before the entities they hang on. Redo runs the complementary order.

When a replayed record refers to something the Document does not contain, the log and
the Document have diverged. The Stack then wipes its history, reports once through the
ports.MessageHandler and refuses to make further claims. It does not roll back records
of the same Post that were already applied.

A Stack is not safe for concurrent use. SetEnabled(false) is an advisory re-entrancy
guard that turns Register* and BeginTransaction into no-ops; replay sets it for its own
duration.
*/
package undo
