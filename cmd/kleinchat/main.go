package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jklein/kleinchat/chat/app"
	"github.com/jklein/kleinchat/chat/client"
	"github.com/jklein/kleinchat/chat/directory"
	"github.com/jklein/kleinchat/chat/session"
	"github.com/jklein/kleinchat/pkg/logs"
	"github.com/jklein/kleinchat/pkg/safego"
)

func main() {
	server := flag.String("server", "http://localhost:5001", "chat server base URL")
	model := flag.String("model", "", "model override sent with every message")
	logLevel := flag.String("log-level", "WARN", "log verbosity")
	flag.Parse()

	logs.SetLevel(logs.GetLevel(*logLevel))

	ctx := context.Background()
	api := client.New(*server)
	if err := api.Health(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "cannot reach %s: %v\n", *server, err)
		os.Exit(1)
	}

	sessions := session.NewService(api)
	defer sessions.Shutdown()

	a := app.New(ctx, sessions, *model)
	a.SetDeltaListener(func(content string) {
		fmt.Print(content)
	})
	if err := a.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	// Session lifecycle events invalidate the cached listing, so /list stays
	// current even for background mutations like reaped chats.
	safego.Go(ctx, func() {
		for range sessions.Subscribe(ctx) {
			if err := a.Directory.Refresh(ctx); err != nil {
				logs.Warnf("directory refresh after session event failed: %v", err)
			}
		}
	})

	(&repl{app: a, api: api}).run(ctx)
}

type repl struct {
	app *app.App
	api *client.Client

	// listing holds the entries of the last printed list, so /open, /rename
	// and /delete can address them by index.
	listing []session.DirectoryEntry
}

func (r *repl) run(ctx context.Context) {
	fmt.Println("kleinchat. Type /help for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return
		}
		if strings.HasPrefix(line, "/") {
			r.command(ctx, line)
			continue
		}
		if err := r.app.Send(ctx, line); err != nil {
			fmt.Fprintf(os.Stderr, "\nsend failed: %v\n", err)
			continue
		}
		fmt.Println()
	}
}

func (r *repl) command(ctx context.Context, line string) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		fmt.Print(`commands:
  /new                start a fresh chat
  /list               list chats grouped by recency
  /search <query>     filter chats by subsequence match
  /open <n>           open chat n from the last listing
  /rename <n> <title> retitle chat n
  /delete <n>         delete chat n
  /instructions [txt] show or set custom instructions
  /quit               leave
anything else is sent as a message
`)
	case "/new":
		_, created, err := r.app.NewSession(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "new chat failed: %v\n", err)
			return
		}
		if created {
			fmt.Println("started a new chat")
		}
	case "/list":
		r.printListing(r.app.Directory.Entries())
	case "/search":
		r.printListing(r.app.Directory.Search(arg))
	case "/open":
		entry, ok := r.pick(arg)
		if !ok {
			return
		}
		opened, err := r.app.OpenSession(ctx, entry.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open failed: %v\n", err)
			return
		}
		fmt.Printf("-- %s --\n", opened.Title)
		for _, m := range opened.Messages {
			fmt.Printf("[%s] %s\n", m.Role, m.Content)
		}
	case "/rename":
		index, title, _ := strings.Cut(arg, " ")
		entry, ok := r.pick(index)
		if !ok {
			return
		}
		if strings.TrimSpace(title) == "" {
			fmt.Fprintln(os.Stderr, "usage: /rename <n> <title>")
			return
		}
		if err := r.app.Rename(ctx, entry.ID, strings.TrimSpace(title)); err != nil {
			fmt.Fprintf(os.Stderr, "rename failed: %v\n", err)
		}
	case "/delete":
		entry, ok := r.pick(arg)
		if !ok {
			return
		}
		if err := r.app.Delete(ctx, entry.ID); err != nil {
			fmt.Fprintf(os.Stderr, "delete failed: %v\n", err)
			return
		}
		fmt.Printf("deleted %q\n", entry.Title)
	case "/instructions":
		if arg == "" {
			settings, err := r.api.GetSettings(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "load settings failed: %v\n", err)
				return
			}
			fmt.Printf("custom instructions: %q\n", settings.CustomInstructions)
			return
		}
		err := r.api.UpdateSettings(ctx, client.Settings{CustomInstructions: arg})
		if err != nil {
			fmt.Fprintf(os.Stderr, "save settings failed: %v\n", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s\n", cmd)
	}
}

func (r *repl) printListing(entries []session.DirectoryEntry) {
	r.listing = entries
	if len(entries) == 0 {
		fmt.Println("no chats")
		return
	}
	now := time.Now()
	grouped := make(map[directory.Bucket][]int)
	for i, entry := range entries {
		b := directory.BucketFor(now, entry.UpdatedAt)
		grouped[b] = append(grouped[b], i)
	}
	for _, bucket := range directory.BucketOrder {
		indexes := grouped[bucket]
		if len(indexes) == 0 {
			continue
		}
		fmt.Printf("%s\n", bucket)
		for _, i := range indexes {
			marker := " "
			if entries[i].ID == r.app.ActiveID() {
				marker = "*"
			}
			fmt.Printf(" %s %2d. %s\n", marker, i+1, entries[i].Title)
		}
	}
}

func (r *repl) pick(arg string) (session.DirectoryEntry, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(r.listing) {
		fmt.Fprintln(os.Stderr, "pick a number from the last /list or /search output")
		return session.DirectoryEntry{}, false
	}
	return r.listing[n-1], true
}
