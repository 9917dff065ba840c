/*
Package session keeps the live funnel sessions of a process.

The Manager starts a Runner per session, looks sessions up by ID for the transport
adapters and tears them down on request, on idle expiry or at shutdown. Sessions
are in-memory only: ending the process ends every session.
*/
package session
