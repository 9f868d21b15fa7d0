// Package fulfillment contains the Fulfillment bounded context.
// It decides which print lab receives a storefront order and describes the
// order in terms every lab adapter can translate.
//
// Key concepts:
//   - CartItem: a priced line referencing one or more source photos
//   - ProviderCode / Route: the fulfillment path chosen for a checkout
//   - FulfillmentProvider: port implemented by the WHCC, Mpix, ROES and standard adapters
//   - ProviderSettings: per-studio enabled flag and credentials for each lab
//   - Order: the locally stored order used by the standard path
//   - Submission: audit record of every dispatch attempt
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in infrastructure/fulfillment
package fulfillment
