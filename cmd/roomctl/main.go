// roomctl is a terminal client for burnroom servers. Message text is
// encrypted locally with the room passcode before it is sent.
//
// Each invocation is a separate process, so the room token printed by
// "create" and "join" has to be handed back through --token or
// ROOMCTL_TOKEN on later commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/adi-253/burnroom/internal/roomclient"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if err != errUsage {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func run(args []string, stdout io.Writer) error {
	var serverURL, token, name string
	var timeout time.Duration

	flagSet := pflag.NewFlagSet("roomctl", pflag.ContinueOnError)
	flagSet.StringVarP(&serverURL, "server", "s", envOr("ROOMCTL_SERVER", "http://localhost:8080"), "server base URL")
	flagSet.StringVarP(&token, "token", "t", os.Getenv("ROOMCTL_TOKEN"), "room token from a previous create or join")
	flagSet.StringVarP(&name, "name", "n", "", "display name announced on join")
	flagSet.DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(flagSet)
		return errUsage
	}

	client, err := roomclient.New(serverURL)
	if err != nil {
		return err
	}
	if token != "" {
		client.SetToken(token)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command, cmdArgs := rest[0], rest[1:]
	switch command {
	case "create":
		if err := want(cmdArgs, 0, "create"); err != nil {
			return err
		}
		room, err := client.Create(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "room:     %s\npasscode: %s\ntoken:    %s\n", room.RoomID, room.Passcode, client.Token())

	case "join":
		if err := want(cmdArgs, 2, "join <room> <passcode>"); err != nil {
			return err
		}
		if err := client.Join(ctx, cmdArgs[0], cmdArgs[1], name); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "token: %s\n", client.Token())

	case "send":
		if len(cmdArgs) < 3 {
			return usage("send <room> <sender> <text...>")
		}
		if err := requireToken(client); err != nil {
			return err
		}
		return client.Send(ctx, cmdArgs[0], cmdArgs[1], strings.Join(cmdArgs[2:], " "))

	case "read":
		if err := want(cmdArgs, 1, "read <room>"); err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}
		msgs, err := client.Messages(ctx, cmdArgs[0])
		if err != nil {
			return err
		}
		for _, m := range msgs {
			marker := " "
			if m.Own {
				marker = "*"
			}
			fmt.Fprintf(stdout, "%s %s %s: %s\n", marker, m.Timestamp.Local().Format(time.TimeOnly), m.Sender, m.Text)
		}

	case "ttl":
		if err := want(cmdArgs, 1, "ttl <room>"); err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}
		ttl, err := client.TTL(ctx, cmdArgs[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, ttl)

	case "info":
		if err := want(cmdArgs, 1, "info <room>"); err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}
		info, err := client.Info(ctx, cmdArgs[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "room:     %s\npasscode: %s\n", info.RoomID, info.Passcode)

	case "destroy":
		if err := want(cmdArgs, 1, "destroy <room>"); err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}
		if err := client.Destroy(ctx, cmdArgs[0]); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "destroyed")

	default:
		return usage(fmt.Sprintf("unknown command %q", command))
	}
	return nil
}

func want(args []string, n int, form string) error {
	if len(args) != n {
		return usage(form)
	}
	return nil
}

func usage(form string) error {
	return fmt.Errorf("%w: roomctl %s", errUsage, form)
}

func requireToken(c *roomclient.Client) error {
	if c.Token() == "" {
		return errors.New("no room token: pass --token or set ROOMCTL_TOKEN")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprint(os.Stderr, `roomctl: terminal client for ephemeral burnroom chats.

Usage:
  roomctl [flags] <command> [args]

Commands:
  create                          open a room and print its passcode and token
  join <room> <passcode>          exchange the passcode for a token
  send <room> <sender> <text...>  encrypt and post a message
  read <room>                     print decrypted history (* marks your messages)
  ttl <room>                      remaining lifetime
  info <room>                     room id and passcode
  destroy <room>                  delete the room for everyone

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
