// Package cli provides the savesync command line.
//
// Every operation is a cobra command. Run with arguments executes one command
// and exits; run without arguments (or with "shell") opens an interactive
// REPL that feeds each line through the same command tree.
//
// Commands:
//
//	games | link <game> <dir> | unlink <game> | specs
//	cloud games | cloud saves <game>
//	upload <game> | restore <game> <index> | delete <game> <index>
//	delete-game <game> [--yes]
//	repair report
//	repair orphans [--delete] [--download DIR] [name]
//	repair missing [--delete] [--yes]
//	export [dir] | wipe [--yes] | version | shell
//
// Destructive commands ask for confirmation on a terminal and refuse to run
// unattended without --yes.
package cli
