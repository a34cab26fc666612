// Package repl implements the interactive shell of mulligan-cli.
//
// The REPL only reads lines, keeps history and offers completion; each
// line is split into arguments and handed to an Executor, which runs it
// through the regular command tree. Typing a line that ends in a tab
// character lists the commands that complete it. "history" lists earlier
// lines and "!N" or "!!" runs one again.
package repl
