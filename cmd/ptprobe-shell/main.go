// cmd/ptprobe-shell/main.go
package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/sirupsen/logrus"

	"github.com/tamzrod/ptprobe/internal/acquire"
	"github.com/tamzrod/ptprobe/internal/board"
	"github.com/tamzrod/ptprobe/internal/config"
	"github.com/tamzrod/ptprobe/internal/console"
	"github.com/tamzrod/ptprobe/internal/monitor"
	"github.com/tamzrod/ptprobe/internal/transport"
)

func main() {
	var (
		port     = flag.String("port", "/dev/ttyUSB0", "serial device, or host:port for the tcp driver")
		driver   = flag.String("driver", transport.DriverGoburrow, "goburrow|tarm|bugst|tcp|sim")
		baud     = flag.Int("baud", transport.DefaultBaud, "baud rate")
		sim      = flag.Bool("sim", false, "talk to a simulated board")
		evalOnly = flag.Bool("e", false, "run the command given as arguments and exit")
		level    = flag.String("log-level", "info", "debug|info|warn|error")
	)
	flag.Parse()

	log := monitor.NewLogger(config.LogConfig{Level: *level, Format: "text"})

	pc := config.PortConfig{
		Name:          *port,
		Driver:        *driver,
		Baud:          *baud,
		ReadTimeoutMs: int(transport.DefaultReadTimeout / time.Millisecond),
	}
	if *sim {
		pc.Driver = acquire.DriverSim
	}

	tr, err := acquire.OpenTransport(pc, 0)
	if err != nil {
		log.WithError(err).Fatal("transport")
	}
	client := board.New(tr)
	if err := client.Open(); err != nil {
		log.WithError(err).WithField("port", pc.Name).Fatal("open")
	}
	defer client.Close()
	log.WithFields(logrus.Fields{"port": pc.Name, "driver": pc.Driver}).Debug("board opened")

	con := console.New(client)
	sh := ishell.New()
	sh.SetPrompt(fmt.Sprintf("[%s] > ", client.Port()))

	for _, cmd := range con.Commands() {
		verb := cmd.Name
		help := cmd.Help
		if cmd.Args != "" {
			help = cmd.Args + ": " + help
		}
		sh.AddCmd(&ishell.Cmd{
			Name: verb,
			Help: help,
			Func: func(c *ishell.Context) {
				out, err := con.Exec(verb, c.Args)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(out)
			},
		})
	}

	if args := flag.Args(); len(args) > 0 {
		if err := sh.Process(args...); err != nil {
			log.WithError(err).Fatal("command failed")
		}
		return
	}
	if *evalOnly {
		log.WithField("commands", strings.Join(verbs(con), ", ")).Fatal("command expected")
	}
	sh.Run()
}

func verbs(con *console.Console) []string {
	var out []string
	for _, cmd := range con.Commands() {
		out = append(out, cmd.Name)
	}
	return out
}
