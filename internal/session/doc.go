// Package session provides conversation session state and persistence.
//
// A session is the unit of conversational state: an append-only audit log of
// turns (AllTurns), a prunable live-context window (RawTurns), and an
// optional structured summary that replaces pruned history in prompts.
//
// Key operations:
//
//   - Lifecycle: [Manager.Create], [Manager.Load], [Manager.LoadOrCreate],
//     [Manager.Save], [Manager.Reset], [Manager.Delete]
//   - Persistence: the [Store] interface with [MemoryStore], [PostgresStore]
//     and [SQLiteStore] implementations
//
// # Value-copy boundary
//
// Every read and write crosses a value-copy boundary: the Manager hands out
// and accepts independent copies via [Session.Clone], and all three stores
// serialize records, so mutating a returned session never affects stored
// state until an explicit Save.
//
// # Concurrency
//
// Manager and the stores are safe for concurrent use. The load→mutate→save
// cycle itself is not serialized here; callers that need per-session mutual
// exclusion must provide it (see the chat orchestrator).
package session
