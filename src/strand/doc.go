// Package strand keeps a local reactive cache of query results consistent
// with a remote data source.
//
// It provides optimistic local mutation with rollback, mutation-to-query
// invalidation, coalesced snapshot-cursor acquisition for consistent reads,
// retry and circuit-breaker coordination around an unreliable transport,
// and ordered middleware and interceptor pipelines for extending the
// request flow.
//
// The transport that actually performs network calls is a collaborator; see
// the strandamqp and strandhttp packages for implementations.
package strand
