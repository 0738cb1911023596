package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/igor04091968/v2panel/app"
	"github.com/igor04091968/v2panel/cmd"
)

func runApp() error {
	app := app.NewApp()

	err := app.Init()
	if err != nil {
		return err
	}

	err = app.Start()
	if err != nil {
		app.Stop()
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			app.RestartApp()
		default:
			app.Stop()
			return nil
		}
	}
}

func main() {
	if err := cmd.NewRootCommand(runApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
