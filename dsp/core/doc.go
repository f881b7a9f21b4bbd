// Package core holds small numeric helpers and processing configuration
// shared by the oscillator, render and analysis packages.
package core
