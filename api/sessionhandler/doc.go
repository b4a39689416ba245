// Package sessionhandler implements the HTTP handlers of the split-session API.
//
// A session is created by its master, joined by shareholders, and receives
// a secret from the master once. The secret is split into shares and each
// shareholder is bound to one share in join order.
//
// # Endpoints
//
//   - POST /split - create a session, the response carries the master token
//   - GET /split/{session_id}?auth=TOKEN - the session as seen by a participant
//   - PUT /split/{session_id} - join without "auth", or act as a participant with it
//   - DELETE /split/{session_id} - remove a session
//
// Every response other than delete has the shape {"session": View, "session_id": ID}.
// Errors are returned as {"error": message, "kind": kind} with the status taken
// from the error kind:
//
//	validation  400
//	denied      401
//	capacity    403
//	not_found   404
//	expired     410
//	internal    500
//
// # Usage Example
//
//	handler := sessionhandler.NewHandler(coordinator, logger, 0)
//	router := chi.NewRouter()
//	handler.RegisterRoutes(router)
package sessionhandler
