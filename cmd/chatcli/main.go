// chatcli is a line-oriented terminal client for the chat server.
// Plain lines are sent as chat; /sync forces a clock resync, /stats
// prints the recent sync samples, /quit exits.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli"

	"github.com/preetjindal555-coder/what-sapp/client"
	"github.com/preetjindal555-coder/what-sapp/clocksync"
	"github.com/preetjindal555-coder/what-sapp/config"
	"github.com/preetjindal555-coder/what-sapp/domain"
)

func main() {
	app := cli.NewApp()
	app.Name = "chatcli"
	app.Usage = "chat client with Cristian clock synchronization"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "host",
			Usage: "Server host",
			Value: config.DefaultHost,
		},
		cli.IntFlag{
			Name:  "port,p",
			Usage: "Server port",
			Value: config.DefaultPort,
		},
		cli.DurationFlag{
			Name:  "sync-interval,s",
			Usage: "Pause between automatic clock resyncs",
			Value: config.DefaultSyncInterval,
		},
		cli.BoolFlag{
			Name:  "drift,d",
			Usage: "Simulate local clock drift",
		},
		cli.Int64Flag{
			Name:  "max-drift",
			Usage: "Max simulated drift per jump (ms)",
			Value: config.DefaultMaxDriftMs,
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	addr := net.JoinHostPort(ctx.String("host"), strconv.Itoa(ctx.Int("port")))

	handlers := client.Handlers{
		OnBroadcast: func(msg domain.Message) {
			ts := "??:??:??"
			if msg.ClientTimestamp != nil {
				ts = clocksync.FormatMillis(*msg.ClientTimestamp)
			}
			fmt.Printf("[%s] %s: %s\n", ts, msg.UserID, msg.Text)
		},
		OnUserJoin: func(msg domain.Message) {
			fmt.Printf("+ %s\n", msg.Text)
		},
		OnUserLeave: func(msg domain.Message) {
			fmt.Printf("- %s\n", msg.Text)
		},
		OnSyncResult: func(res clocksync.Result) {
			fmt.Printf("* clock synced: offset %.1fms, confidence %.1fms, rtt %dms\n",
				res.OffsetMs, res.ConfidenceMs, res.RTTMs)
		},
		OnDisconnect: func(err error) {
			if err != nil {
				fmt.Printf("connection lost: %s\n", err)
			} else {
				fmt.Println("disconnected")
			}
			os.Exit(0)
		},
	}

	var opts []client.Option
	if ctx.Bool("drift") {
		opts = append(opts, client.WithDriftSimulation(ctx.Int64("max-drift")))
	}

	c, err := client.Dial(addr, ctx.Duration("sync-interval"), handlers, opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Printf("connected to %s\n", addr)
	if err := c.RequestSync(); err != nil {
		return err
	}

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case line == "/quit":
			return nil
		case line == "/sync":
			if err := c.RequestSync(); err != nil {
				return err
			}
		case line == "/stats":
			printStats(c)
		default:
			if err := c.SendChat(line); err != nil {
				return err
			}
		}
	}
	return sc.Err()
}

func printStats(c *client.Client) {
	history := c.History()
	if len(history) == 0 {
		fmt.Println("no sync samples yet")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "offset(ms)", "confidence(ms)", "rtt(ms)"})
	for i, res := range history {
		t.AppendRow(table.Row{i + 1, res.OffsetMs, res.ConfidenceMs, res.RTTMs})
	}
	t.Render()

	fmt.Printf("local %s | synced %s\n",
		clocksync.FormatMillis(c.LocalNow()),
		clocksync.FormatMillis(c.SyncedNow()))
}
