// Package main is the entry point for the qrng service and CLI.
package main

func main() {
	Execute()
}
