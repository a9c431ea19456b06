package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations",
		Action: func(c *cli.Context) error {
			database, err := connect(c.Context)
			if err != nil {
				return err
			}
			defer database.Close()

			applied, err := database.Migrate(c.Context)
			for _, name := range applied {
				fmt.Printf("applied %s\n", name)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Println("database is up to date")
			}
			return nil
		},
	}
}
