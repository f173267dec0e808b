// Package domain contains the core conversion concepts: the closed set of tools,
// requests, results and the error taxonomy.
// Keep this package free of transport (HTTP) and infrastructure (Redis/pdf libraries) concerns.
package domain
