package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskboardhq/taskboard/client/api"
	"github.com/taskboardhq/taskboard/client/board"
	"github.com/taskboardhq/taskboard/client/session"
	"github.com/taskboardhq/taskboard/client/ui"
)

func main() {
	serverURL := flag.String("server", "", "taskboard server URL (defaults to the saved session's server)")
	sessionPath := flag.String("session", session.DefaultPath(), "session file path")
	logout := flag.Bool("logout", false, "clear the saved session and exit")
	flag.Parse()

	sess, err := session.NewManager(*sessionPath)
	if err != nil {
		log.Fatalf("❌ Failed to open session: %v", err)
	}

	if *logout {
		if err := sess.Clear(); err != nil {
			log.Fatalf("❌ Failed to clear session: %v", err)
		}
		log.Println("👋 Signed out")
		return
	}

	state := sess.Get()
	base := *serverURL
	if base == "" {
		base = state.ServerURL
	}
	if base == "" {
		base = os.Getenv("TASKBOARD_SERVER")
	}
	if base == "" {
		base = "http://localhost:8000"
	}
	if err := sess.SetServerURL(base); err != nil {
		log.Fatalf("❌ Failed to save session: %v", err)
	}

	client := api.NewClient(base)
	if state.Token != "" {
		client.SetToken(state.Token)
	}

	store := board.NewStore(client, sess)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ui.Run(ctx, client, sess, store); err != nil {
		log.Fatalf("❌ %v", err)
	}
}
