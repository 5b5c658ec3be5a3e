// Package store persists work items, editors, generated articles, and audio
// briefings in SQLite.
//
// The Store manages database connections, schema migrations, claim semantics,
// and the transactional writes that keep work-item status in lockstep with
// article rows. Claiming uses an immediate write transaction so that
// concurrent callers never obtain the same work item twice.
//
// Treat this package as the single source of truth for persistence semantics;
// when you add new statuses or columns, add a migration under migrations/.
package store
