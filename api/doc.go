/*
Package api holds the wire types and server configuration of the split-session
service.

Subpackages:

 1. sessionhandler - HTTP handlers for the /split endpoints
 2. servers - HTTP server lifecycle, health and drain endpoints
 3. clients - Go client for the /split endpoints

Request and response bodies are JSON. Session views are produced by the session
package; this package only wraps them with the session id.
*/
package api
