package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"basegraph.app/chat/internal/service"
	"basegraph.app/chat/internal/store"
)

func createUserCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-user",
		Usage: "Create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true},
			&cli.StringFlag{Name: "name", Usage: "Display name"},
		},
		Action: func(c *cli.Context) error {
			database, err := connect(c.Context)
			if err != nil {
				return err
			}
			defer database.Close()

			in := service.NewUser{
				Email:    c.String("email"),
				Password: c.String("password"),
			}
			if name := c.String("name"); name != "" {
				in.Name = &name
			}

			users := service.NewUserService(store.NewStores(database.Queries()).Users())
			user, err := users.Create(c.Context, in)
			if err != nil {
				return err
			}

			fmt.Printf("created user %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
}

func resetPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "reset-password",
		Usage:     "Set a new password for an account",
		ArgsUsage: "<email> <password>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("usage: chatctl reset-password <email> <password>", 2)
			}

			database, err := connect(c.Context)
			if err != nil {
				return err
			}
			defer database.Close()

			users := service.NewUserService(store.NewStores(database.Queries()).Users())
			if err := users.ResetPassword(c.Context, c.Args().Get(0), c.Args().Get(1)); err != nil {
				return err
			}

			fmt.Printf("password updated for %s\n", c.Args().Get(0))
			return nil
		},
	}
}
