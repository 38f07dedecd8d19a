// Package sources provides interfaces and implementations for retrieving
// order and shipment data from the upstream services.
//
// The package defines two narrow interfaces: OrderSource, which lists every
// shipment known to the order-management system in one bulk call, and
// CarrierSource, which looks up live tracking state for a single shipment.
// Both upstreams are treated as expensive and rate-limited; nothing in this
// package decides when to call them, that is the sync gates' job.
//
// Architecture:
//   - OrderSource / CarrierSource: interfaces the sync layer depends on
//   - SourceDataValidator: schema-validates and parses upstream payloads
//   - Order / TrackingInfo: wire types mapped onto tracking records
//
// Current implementations:
//   - apiOrderSource: fetches the order list from an HTTP endpoint
//   - fileOrderSource: reads the order list from a local JSON file,
//     for fixtures and air-gapped operation
//   - apiCarrierSource: queries the carrier tracking API per shipment
//
// A factory builds the configured implementations from the sources section
// of the configuration. Every payload passes JSON Schema validation before
// any field is mapped into the store.
package sources
