package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/uhppoted/uhppoted-lib/command"

	"github.com/sfdict/sf-data-dictionary/commands"
	"github.com/sfdict/sf-data-dictionary/config"
)

var cli = []uhppoted.CommandV{
	&commands.VersionCmd,
	&commands.AuthoriseCmd,
	&commands.SyncCmd,
	&commands.CompareCmd,
	&commands.GetCmd,
	&commands.ServeCmd,
}

var options = commands.Options{
	Config: config.DefaultConfig,
	Debug:  false,
}

var help = uhppoted.NewHelpV(commands.APP, cli, nil)

func main() {
	flag.StringVar(&options.Config, "config", options.Config, "Configuration file")
	flag.BoolVar(&options.Debug, "debug", options.Debug, "Enable debugging information")
	flag.Parse()

	cmd, err := uhppoted.ParseV(cli, nil, help)
	if err != nil {
		fmt.Printf("\nError parsing command line: %v\n\n", err)
		os.Exit(1)
	}

	if cmd == nil {
		help.Execute()
		os.Exit(1)
	}

	if err := commands.SetLogger(options.Debug); err != nil {
		fmt.Printf("\nError initialising logger: %v\n\n", err)
		os.Exit(1)
	}

	err = cmd.Execute(&options)
	commands.FlushLogs()

	if err != nil {
		fmt.Printf("\nERROR: %v\n\n", err)
		os.Exit(1)
	}
}
