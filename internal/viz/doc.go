// Package viz styles the terminal summaries printed by the holosym CLI.
package viz
