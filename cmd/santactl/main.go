// Command santactl talks to a running secret santa server.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/mmynk/secretsanta/internal/rpc"
)

var serverFlag = &cli.StringFlag{
	Name:    "server",
	Usage:   "base URL of the santa server",
	Value:   "http://localhost:8080",
	EnvVars: []string{"SANTA_SERVER"},
}

var timeoutFlag = &cli.DurationFlag{
	Name:  "timeout",
	Usage: "per-call timeout",
	Value: 10 * time.Second,
}

var adminTokenFlag = &cli.StringFlag{
	Name:     "admin-token",
	Usage:    "admin token returned by create",
	Required: true,
	EnvVars:  []string{"SANTA_ADMIN_TOKEN"},
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "santactl",
		Usage:  "create secret santa groups and reveal matches",
		Flags:  []cli.Flag{serverFlag, timeoutFlag},
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create a group and draw its assignment",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "group name", Required: true},
					&cli.StringSliceFlag{Name: "participant", Aliases: []string{"p"}, Usage: "participant name (repeatable)"},
				},
				Action: func(c *cli.Context) error {
					return withClient(c, func(ctx context.Context, client *rpc.Client) (any, error) {
						return client.CreateGroup(ctx, &rpc.CreateGroupRequest{
							Name:             c.String("name"),
							ParticipantNames: c.StringSlice("participant"),
						})
					})
				},
			},
			{
				Name:  "group",
				Usage: "show a group's summary",
				Flags: []cli.Flag{adminTokenFlag},
				Action: func(c *cli.Context) error {
					return withClient(c, func(ctx context.Context, client *rpc.Client) (any, error) {
						return client.GetGroupByAdminToken(ctx, c.String("admin-token"))
					})
				},
			},
			{
				Name:  "participants",
				Usage: "list participants with their reveal status",
				Flags: []cli.Flag{adminTokenFlag},
				Action: func(c *cli.Context) error {
					return withClient(c, func(ctx context.Context, client *rpc.Client) (any, error) {
						return client.GetParticipantsByAdminToken(ctx, c.String("admin-token"))
					})
				},
			},
			{
				Name:  "list",
				Usage: "list the public names of a group",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "group", Usage: "group id", Required: true},
				},
				Action: func(c *cli.Context) error {
					return withClient(c, func(ctx context.Context, client *rpc.Client) (any, error) {
						return client.GetParticipantsPublicList(ctx, c.String("group"))
					})
				},
			},
			{
				Name:  "token",
				Usage: "fetch a participant's reveal token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "participant", Usage: "participant id", Required: true},
				},
				Action: func(c *cli.Context) error {
					return withClient(c, func(ctx context.Context, client *rpc.Client) (any, error) {
						return client.GetParticipantToken(ctx, c.String("participant"))
					})
				},
			},
			{
				Name:  "reveal",
				Usage: "reveal who a token's holder gives a gift to",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Usage: "reveal token", Required: true},
				},
				Action: func(c *cli.Context) error {
					return withClient(c, func(ctx context.Context, client *rpc.Client) (any, error) {
						return client.GetMyMatch(ctx, c.String("token"))
					})
				},
			},
			{
				Name:  "logs",
				Usage: "show a participant's reveal history",
				Flags: []cli.Flag{
					adminTokenFlag,
					&cli.StringFlag{Name: "participant", Usage: "participant id", Required: true},
				},
				Action: func(c *cli.Context) error {
					return withClient(c, func(ctx context.Context, client *rpc.Client) (any, error) {
						return client.GetRevelationLogs(ctx, c.String("admin-token"), c.String("participant"))
					})
				},
			},
			{
				Name:  "delete",
				Usage: "delete a group and everything in it",
				Flags: []cli.Flag{adminTokenFlag},
				Action: func(c *cli.Context) error {
					return withClient(c, func(ctx context.Context, client *rpc.Client) (any, error) {
						if err := client.DeleteGroup(ctx, c.String("admin-token")); err != nil {
							return nil, err
						}
						return map[string]bool{"deleted": true}, nil
					})
				},
			},
		},
	}
}

// withClient runs call against the configured server and prints the result
// as indented JSON.
func withClient(c *cli.Context, call func(context.Context, *rpc.Client) (any, error)) error {
	ctx, cancel := context.WithTimeout(c.Context, c.Duration(timeoutFlag.Name))
	defer cancel()

	client := rpc.NewClient(http.DefaultClient, c.String(serverFlag.Name))
	result, err := call(ctx, client)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Command.Name, err)
	}

	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(b))
	return err
}
