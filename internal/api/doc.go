// Package api exposes a read-only HTTP surface over the verification state:
// health, stored license records, and the agent directory. Mutations happen
// exclusively through the chat adapter.
package api
