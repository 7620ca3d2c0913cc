// Package main is the entry point for the faultline service: a unified
// fault-processing pipeline that classifies raw faults, builds safe
// user-facing responses, and reports canonical faults over NATS JetStream.
package main

import "faultline/cmd"

func main() {
	cmd.Execute()
}
