package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"lyra/internal/app"
	"lyra/internal/bus"
	"lyra/internal/config"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

const helpText = `Try:
  remember X as Y
  what did i say about X
  capture
  read text
  describe
  history
  ...or just ask anything.`

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	speak := cli.BoolP("speak", "s", false, "Speak replies aloud")
	busURL := cli.StringP("bus", "b", "", "Serve a websocket bus instead of stdin")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	godotenv.Load(*envFile)
	cfg := config.FromEnv()

	a, err := app.New(cfg)
	if err != nil {
		log.Error("Failed to boot", "err", err)
		os.Exit(1)
	}

	if *busURL != "" {
		runBus(a, *busURL)
		return
	}

	runShell(a, *speak)
}

// runShell is the interactive text front-end. Each submission is dispatched
// on its own goroutine so a slow LLM call never stalls input handling.
func runShell(a *app.App, speak bool) {
	fmt.Println("Hello — I'm Lyra. Type 'help' for commands, 'exit' to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	var wg sync.WaitGroup

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "exit", "quit":
			wg.Wait()
			return
		case "help":
			fmt.Println(helpText)
			continue
		case "":
			continue
		}

		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			reply := a.Router.Route(context.Background(), text)
			if reply == "" {
				return
			}
			fmt.Println(reply)
			if speak {
				a.Speaker.Speak(reply)
			}
		}(line)
	}

	wg.Wait()
}

// runBus serves submissions arriving over a websocket hub.
func runBus(a *app.App, url string) {
	b, err := bus.Dial(url, 0)
	if err != nil {
		log.Error("Failed to connect to bus", "url", url, "err", err)
		os.Exit(1)
	}

	b.Run(func(text string) string {
		return a.Router.Route(context.Background(), text)
	})
}
