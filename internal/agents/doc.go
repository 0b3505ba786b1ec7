// Package agents talks to the remote agent workspace: an HTTP client for the
// platform API, a broker that exchanges one question for one reply through a
// bounded polling loop, and a cached directory of available agents with a
// pointer to the currently selected one.
package agents
