// Package models defines the core domain models for tabkeeper.
//
// # Ledger Models
//
//   - Transaction: a purchase made on credit; carries the running paid amount
//   - Payment: an immutable record of money applied against a Transaction
//   - CatalogItem: a reusable item used to prefill transactions
//   - HistoryEntry: one row of the merged transaction/payment feed
//
// Every ledger record carries the ID of the user that owns it. Relationships
// are expressed with ID strings rather than pointers.
//
// Money is held as decimal.Decimal so that the sum of a transaction's
// payments always equals its paid amount exactly.
package models
