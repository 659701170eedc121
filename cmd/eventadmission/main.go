// Package main is the entry point for the event admission service.
//
// @title Event Admission API
// @version 1.0
// @description Registration admission and waiting list management for events.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
package main

import (
	"os"

	_ "eventadmission/docs"
)

// Build information injected via ldflags at build time.
var version = "dev"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
