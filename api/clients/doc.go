/*
Package clients provides a Go client for the split-session API.

SessionClient wraps the /split endpoints:

  - Create - create a session and receive the master token
  - Join - join as a shareholder and receive a shareholder token
  - SetSecret - submit the secret as the master
  - Get - read the session as a participant
  - Delete - remove the session

Non-200 responses are returned as *APIError, which unwraps to the session
package errors:

	_, _, err := client.Join(ctx, id, "alice")
	if errors.Is(err, session.ErrCapacity) {
		// every share is taken
	}
*/
package clients
