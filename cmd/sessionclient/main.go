package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ruteri/split-session-service/api"
	"github.com/ruteri/split-session-service/api/clients"
	"github.com/ruteri/split-session-service/cmd/flags"
	"github.com/ruteri/split-session-service/interfaces"
	"github.com/urfave/cli/v2"
)

var flagTimeout *cli.Int64Flag = &cli.Int64Flag{
	Name:  "timeout",
	Value: 30,
	Usage: "request timeout in seconds",
}
var flagSessionID *cli.StringFlag = &cli.StringFlag{
	Name:     "session",
	Required: true,
	Usage:    "session id",
}
var flagAuth *cli.StringFlag = &cli.StringFlag{
	Name:     "auth",
	Required: true,
	Usage:    "participant auth token",
	EnvVars:  []string{"SPLIT_SESSION_AUTH"},
}
var flagAlias *cli.StringFlag = &cli.StringFlag{
	Name:     "alias",
	Required: true,
	Usage:    "client alias",
}
var flagSessionAlias *cli.StringFlag = &cli.StringFlag{
	Name:     "session-alias",
	Required: true,
	Usage:    "human readable session name",
}
var flagQuorum *cli.IntFlag = &cli.IntFlag{
	Name:  "quorum",
	Usage: "shares needed to reconstruct the secret",
}
var flagShares *cli.IntFlag = &cli.IntFlag{
	Name:  "shares",
	Usage: "total number of shares",
}
var flagSecret *cli.StringFlag = &cli.StringFlag{
	Name:  "secret",
	Usage: "secret value, read from stdin when empty",
}

const usage string = `Create and take part in split-session secret sharing.

The master creates a session and shares its id. Shareholders join it, the master
sets the secret, and each shareholder reads back its own share.`

func main() {
	app := &cli.App{
		Name:  "sessionclient",
		Usage: usage,
		Flags: []cli.Flag{
			flags.ServerURLFlag,
			flagTimeout,
		},
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create a session as its master",
				Flags: []cli.Flag{flagAlias, flagSessionAlias, flagQuorum, flagShares},
				Action: func(cCtx *cli.Context) error {
					resp, err := newClient(cCtx).Create(cCtx.Context, cCtx.String(flagAlias.Name), cCtx.String(flagSessionAlias.Name), policyFromFlags(cCtx))
					if err != nil {
						return fmt.Errorf("create failed: %w", err)
					}
					return printJSON(resp)
				},
			},
			{
				Name:  "join",
				Usage: "join a session as a shareholder",
				Flags: []cli.Flag{flagSessionID, flagAlias},
				Action: func(cCtx *cli.Context) error {
					resp, _, err := newClient(cCtx).Join(cCtx.Context, sessionID(cCtx), cCtx.String(flagAlias.Name))
					if err != nil {
						return fmt.Errorf("join failed: %w", err)
					}
					return printJSON(resp)
				},
			},
			{
				Name:  "get",
				Usage: "read a session as a participant",
				Flags: []cli.Flag{flagSessionID, flagAuth},
				Action: func(cCtx *cli.Context) error {
					resp, err := newClient(cCtx).Get(cCtx.Context, sessionID(cCtx), interfaces.AuthToken(cCtx.String(flagAuth.Name)))
					if err != nil {
						return fmt.Errorf("get failed: %w", err)
					}
					return printJSON(resp)
				},
			},
			{
				Name:  "set-secret",
				Usage: "submit the secret as the session master",
				Flags: []cli.Flag{flagSessionID, flagAuth, flagAlias, flagSecret, flagQuorum, flagShares},
				Action: func(cCtx *cli.Context) error {
					secret, err := readSecret(cCtx)
					if err != nil {
						return err
					}
					resp, err := newClient(cCtx).SetSecret(cCtx.Context, sessionID(cCtx), interfaces.AuthToken(cCtx.String(flagAuth.Name)),
						cCtx.String(flagAlias.Name), secret, policyFromFlags(cCtx))
					if err != nil {
						return fmt.Errorf("set-secret failed: %w", err)
					}
					return printJSON(resp)
				},
			},
			{
				Name:  "delete",
				Usage: "remove a session",
				Flags: []cli.Flag{flagSessionID},
				Action: func(cCtx *cli.Context) error {
					id := sessionID(cCtx)
					if err := newClient(cCtx).Delete(cCtx.Context, id); err != nil {
						return fmt.Errorf("delete failed: %w", err)
					}
					return printJSON(api.DeleteSessionResponse{Success: true, SessionID: id})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) *clients.SessionClient {
	timeout := time.Duration(cCtx.Int64(flagTimeout.Name)) * time.Second
	return clients.NewSessionClient(cCtx.String(flags.ServerURLFlag.Name), timeout)
}

func sessionID(cCtx *cli.Context) interfaces.SessionID {
	return interfaces.SessionID(cCtx.String(flagSessionID.Name))
}

// policyFromFlags returns nil unless both quorum and shares are set.
func policyFromFlags(cCtx *cli.Context) *api.SessionPolicy {
	if !cCtx.IsSet(flagQuorum.Name) && !cCtx.IsSet(flagShares.Name) {
		return nil
	}
	return &api.SessionPolicy{Quorum: cCtx.Int(flagQuorum.Name), Shares: cCtx.Int(flagShares.Name)}
}

func readSecret(cCtx *cli.Context) (string, error) {
	if secret := cCtx.String(flagSecret.Name); secret != "" {
		return secret, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("could not read secret from stdin: %w", err)
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", errors.New("empty secret")
	}
	return secret, nil
}

func printJSON(v interface{}) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
