/*
Package ports defines the driven ports (interfaces) of the ChefMate dialogue controller.

These interfaces decouple the turn controller and the voice session from their
collaborators, so the same core runs against a remote search service or a local
catalog, renders to a terminal, an SSE stream or an MCP client, and persists to
memory, files or Redis.

# Key Interfaces

  - Searcher: the recipe search service (search, modify, follow-up).
  - EventSink: the render collaborator receiving domain.Event values.
  - Recognizer: the speech engine driven by the voice session manager.
  - SessionStore: persistence of conversation records.
  - DistributedLocker: distributed locking for concurrent session access.
*/
package ports
