package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/S1riyS/happyphone/server/internal/config"
	"github.com/S1riyS/happyphone/server/internal/tui"
)

func main() {
	server := pflag.StringP("server", "s", "http://localhost:8080", "terminal server URL")
	token := pflag.StringP("token", "t", os.Getenv("VOSH_TOKEN"), "bearer token (see server --issue-token)")
	user := pflag.StringP("user", "u", os.Getenv("USER"), "user id sent when the server runs without auth")
	name := pflag.StringP("name", "n", "", "display name sent when the server runs without auth")
	interval := pflag.Duration("recheck-interval", 2*time.Second, "delay between download polls")
	limit := pflag.Int("recheck-limit", 30, "maximum polls after one command")
	timeout := pflag.Duration("timeout", 10*time.Second, "request timeout")
	configPath := pflag.StringP("config", "c", "", "server config to take recheck settings from")
	pflag.Parse()

	if *configPath != "" {
		cfg := config.MustLoad(*configPath)
		if !pflag.Lookup("recheck-interval").Changed {
			*interval = cfg.Terminal.RecheckInterval
		}
		if !pflag.Lookup("recheck-limit").Changed {
			*limit = cfg.Terminal.RecheckLimit
		}
	}

	if *name == "" {
		*name = *user
	}

	client := tui.NewClient(*server, *token, *user, *name, *timeout)
	m := tui.InitialModel(client, tui.NewRecheck(*interval, *limit), *timeout)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "vosh:", err)
		os.Exit(1)
	}
}
