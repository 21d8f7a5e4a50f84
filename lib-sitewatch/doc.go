// Package sitewatch is the data model of sitewatch.
//
// It holds the records that the monitoring engine passes around (probe
// results, sites, incidents and status events) and the availability
// computation that reconstructs uptime from incidents.
// Other packages import it as api.
package sitewatch
