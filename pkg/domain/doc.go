/*
Package domain contains the core data types shared by the undo log, its persistence
adapters and the editing-session layer.

The package is kept free of I/O. Everything the undo stack stores about the model graph
is either an identifying key (entity name, connector endpoints, widget index) or an
opaque Snapshot produced by the Document implementation.

# Key Entities

  - Snapshot: opaque, fully-reconstructable description of an entity, connector or widget.
  - ConnectorRef: the (entity, port) pair of both ends of a connector.
  - History: the persisted form of an undo stack (posts of tagged records).
  - LifecycleHooks: callbacks fired after undo, redo and invalidation.
*/
package domain
