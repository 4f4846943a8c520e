// Package lifecycle turns host background/foreground notifications into
// controller events.
//
// A Bridge remembers when the host went to the background. On return it
// posts garage.ResumeAfterBackground first, but only when the background
// period lasted at least garage.ResumeThreshold, and then always
// garage.EnteringForeground. Short trips produce EnteringForeground alone.
//
// The daemon drives a Bridge from SIGUSR1/SIGUSR2 and from the lifecycle
// API routes.
package lifecycle
