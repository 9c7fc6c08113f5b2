// Package driver mirrors the knowledge store into a graph database and
// answers the structural queries the integrator relies on, most importantly
// the two-hop shared-neighbor search behind graph-based inference.
//
// Neo4jDriver talks to Neo4j over Bolt. NoopDriver is the degraded mode used
// when no graph database is configured.
package driver
