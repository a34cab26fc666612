// Package command defines the mulligan-cli command tree.
//
// Every invocation builds one Runtime (transport, token store, session,
// API client and query cache) before its action runs. The interactive
// shell keeps that Runtime for its whole lifetime, so the session and the
// cached queries carry over from one line to the next.
package command
