// Command sieveadm is a peripheral driver over the managesieve package: a
// thin CLI for the mandatory ManageSieve command set, driven by a TOML
// profile file in the shape of the teacher's own config-file-plus-flags
// convention (cmd/sora-admin/main.go's os.Args[1] subcommand dispatch).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/migadu/sievekit/managesieve"
	"github.com/migadu/sievekit/sieveconfig"
	"github.com/migadu/sievekit/sievelog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "listscripts":
		run(os.Args[2:], 0, func(c *managesieve.Client, args []string) error {
			active, names, err := c.ListScripts()
			if err != nil {
				return err
			}
			for _, n := range names {
				marker := " "
				if n == active {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, n)
			}
			return nil
		})
	case "getscript":
		run(os.Args[2:], 1, func(c *managesieve.Client, args []string) error {
			text, err := c.GetScript(args[0])
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		})
	case "putscript":
		run(os.Args[2:], 2, func(c *managesieve.Client, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			return c.PutScript(args[0], string(data))
		})
	case "setactive":
		run(os.Args[2:], 1, func(c *managesieve.Client, args []string) error {
			return c.SetActive(args[0])
		})
	case "deletescript":
		run(os.Args[2:], 1, func(c *managesieve.Client, args []string) error {
			return c.DeleteScript(args[0])
		})
	case "renamescript":
		run(os.Args[2:], 2, func(c *managesieve.Client, args []string) error {
			return c.RenameScript(args[0], args[1])
		})
	case "checkscript":
		run(os.Args[2:], 1, func(c *managesieve.Client, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return c.CheckScript(string(data))
		})
	default:
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: sieveadm [-config path] [-profile name] <subcommand> [args...]

subcommands:
  listscripts
  getscript <name>
  putscript <name> <file>
  setactive <name>
  deletescript <name>
  renamescript <old> <new>
  checkscript <file>`)
}

// run parses the shared -config/-profile flags out of args, connects,
// authenticates, and invokes fn with the remaining positional arguments.
func run(args []string, wantPositional int, fn func(*managesieve.Client, []string) error) {
	configPath, profileName, positional := parseCommonFlags(args)

	cfgFile, err := sieveconfig.LoadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sieveadm: %s\n", err)
		os.Exit(1)
	}
	profile, err := cfgFile.Profile(profileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sieveadm: %s\n", err)
		os.Exit(1)
	}
	if len(positional) < wantPositional {
		printUsage()
		os.Exit(2)
	}

	ctx := context.Background()
	log := sievelog.New(parseLevel(profile.LogLevel))

	client, err := managesieve.Dial(ctx, profile.Addr, managesieve.Options{
		DialTimeout:    profile.DialTimeout(),
		CommandTimeout: profile.CommandTimeout(),
		Logger:         log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sieveadm: connect: %s\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if profile.StartTLS && client.Capabilities().Has("STARTTLS") {
		if err := client.StartTLS(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "sieveadm: starttls: %s\n", err)
			os.Exit(1)
		}
	}

	if profile.Username != "" {
		if err := client.Authenticate(ctx, profile.Username, profile.Password, profile.Mechanism); err != nil {
			fmt.Fprintf(os.Stderr, "sieveadm: authenticate: %s\n", err)
			os.Exit(1)
		}
	}

	if err := fn(client, positional); err != nil {
		fmt.Fprintf(os.Stderr, "sieveadm: %s\n", err)
		os.Exit(1)
	}

	client.Logout()
}

func parseCommonFlags(args []string) (configPath, profile string, positional []string) {
	configPath = "sieveadm.toml"
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-config":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case "-profile":
			if i+1 < len(args) {
				profile = args[i+1]
				i++
			}
		default:
			positional = append(positional, args[i])
		}
	}
	return configPath, profile, positional
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
