// Package app provides the application bootstrap for conduit.
//
// It translates command-line level configuration (debug, silent, config
// path) into an initialized logging setup and a constructed integration
// coordinator, and runs the coordinator until the supplied context is
// cancelled.
package app
