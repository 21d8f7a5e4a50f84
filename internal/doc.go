// internal is internal packages for sitewatch.
//
// The tracker owns the state machine, and the store is the only place that persists it.
// Dependencies to other packages are implemented as an interface like monitor.Logger.
//
// The siteerr package and the testutil package are exceptions of this rule.
// These packages are used by other packages.
package internal
