// Package domain contains the core business concepts for the textpdf service.
// Keep this package free of transport (HTTP) and infrastructure (Chrome/Redis/Postgres) concerns.
package domain
