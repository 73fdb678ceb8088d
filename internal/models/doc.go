// Package models defines the core domain models for OweMate.
//
// # Models
//
//   - Group: the shared-ledger aggregate root (members + expenses + metadata)
//   - Member: one user's participation record within a group, carrying
//     running balances
//   - Expense: a recorded cost fronted by one member and split among others
//   - Split: one member's assigned share of a single expense
//   - Settlement: an audit record of a direct payment between two members
//   - User: a registered account (authentication and member identity source)
//
// # Design Principles
//
// 1. **One aggregate per operation**: every ledger operation reads a whole
// Group, computes the next state, and writes it back as one unit.
// 2. **Avoid circular references**: relationships use ID strings, never
// pointers between models.
// 3. **Denormalized snapshots**: Member.Name/Email are copied from the User
// at join time and are not live-synced afterwards.
package models
