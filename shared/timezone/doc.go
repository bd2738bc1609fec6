// Package timezone pins every timestamp the service produces (booking dates,
// lifecycle event times, dispatch record updates) to the zone configured via
// APP_TIMEZONE. Unknown or empty zones fall back to UTC.
package timezone
