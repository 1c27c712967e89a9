// Package integration contains the domain model for marketplace and ERP
// provider integrations: provider codes, the per-tenant credential record,
// the sync run ledger, and the ports implemented by the infrastructure
// layer (marketplace adapters, persistence).
package integration
