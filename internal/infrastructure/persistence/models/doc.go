// Package models contains GORM persistence models for the sandbox gateways.
// Domain types carry no ORM concerns; each model converts to and from its
// domain type with ToDomain and FromDomain.
//
// Structure:
// - base.go: shared model fields
// - purchase_order.go: purchase orders with their amendment sub-record
// - harvest_batch.go: harvest batches with origin data
package models
