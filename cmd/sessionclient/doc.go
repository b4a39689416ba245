// Package main (cmd/sessionclient) is a command line client for the
// split-session API.
//
// A typical 2-of-3 session:
//
//	sessionclient create --alias alice --session-alias "db unseal" --quorum 2 --shares 3
//	sessionclient join --session $SID --alias bob
//	sessionclient set-secret --session $SID --auth $MASTER --alias alice < secret.txt
//	sessionclient get --session $SID --auth $BOB
//
// Responses are printed as indented JSON.
package main
