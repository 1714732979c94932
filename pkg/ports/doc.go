/*
Package ports defines the driven ports (interfaces) around the undo log.

These interfaces decouple the replay engine from the model graph it mutates and from the
backends that persist history across save/reload.

# Key Interfaces

  - Document: the mutable model graph. The undo stack never touches graph state any other way.
  - MessageHandler: receives the single user-visible error raised when history is invalidated.
  - HistoryStore: persists and loads the serialized form of a stack per document.
  - DistributedLocker: serializes editing sessions on the same document across processes.
*/
package ports
