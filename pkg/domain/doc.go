/*
Package domain contains the core domain models of the ChefMate dialogue controller.

It defines the conversation record (SessionState), the recipe payloads exchanged
with the search service, the classified Intent of an utterance and the render
Events emitted for each turn. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - SessionState: what the user is currently looking at (recipe set, active recipe, follow-up flag).
  - Recipe: a recipe summary or detail, tolerant of list-or-text ingredient and step fields.
  - Intent: the tagged result of classifying an utterance (reset, select, modify, follow-up, search).
  - Event: a structural description of what the host should render after a turn.
*/
package domain
