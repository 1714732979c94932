// Package undolog is the root of the model-graph undo/redo transaction log.
//
// The log itself lives in pkg/undo: a Stack records every edit made to a document as
// records grouped into posts, and replays them backwards (undo) or forwards (redo)
// against anything implementing ports.Document. Histories survive a save/reload
// through ports.HistoryStore adapters (memory, file, redis, sqlite) optionally wrapped
// with compression and encryption middleware, and pkg/session serializes concurrent
// access per document.
//
// cmd/undolog inspects stored histories and serves undo sessions over HTTP and MCP.
package undolog
