// Command bustubctl is a small interactive harness for the storage
// substrate: it wires a buffer.Pool, a diskio.FileManager, a
// walhook.Hook and a triestore.Store together and exposes them through
// a readline REPL for manual exercise (poke a page, put/get a trie
// key), in the shape of the teacher's cmd/client REPL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/haduyet/bustubgo/internal/buffer"
	"github.com/haduyet/bustubgo/internal/diskio"
	"github.com/haduyet/bustubgo/internal/triestore"
	"github.com/haduyet/bustubgo/internal/walhook"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "bustub.yaml", "path to bustubctl yaml config")
	flag.Parse()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		slog.Error("bustubctl: config", "err", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		slog.Error("bustubctl: create data dir", "err", err)
		os.Exit(1)
	}

	disk := diskio.NewFileManager(cfg.Storage.DataDir, "bustub")
	hook, err := walhook.Open(cfg.Storage.DataDir)
	if err != nil {
		slog.Error("bustubctl: open checkpoint log", "err", err)
		os.Exit(1)
	}
	defer func() { _ = hook.Close() }()

	pool := buffer.NewPool(cfg.Buffer.PoolSize, disk, cfg.Buffer.K, hook)
	store := triestore.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown(pool, hook)
	}()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bustub> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		slog.Error("bustubctl: readline", "err", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	fmt.Printf("bustubctl: pool_size=%d k=%d data_dir=%s\n", cfg.Buffer.PoolSize, cfg.Buffer.K, cfg.Storage.DataDir)
	fmt.Println("type 'help' for commands")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if shouldQuit(line) {
			break
		}
		dispatch(pool, store, line)
	}

	shutdown(pool, hook)
}

// shutdown records a checkpoint of whatever the pool is about to flush,
// then flushes and syncs the log. The pool itself stays unaware of
// checkpoints; this is the one place the two collaborators are wired
// together.
func shutdown(pool *buffer.Pool, hook *walhook.Hook) {
	if _, err := hook.AppendCheckpoint(pool.ResidentPageIDs()); err != nil {
		slog.Error("bustubctl: checkpoint", "err", err)
	}
	if err := pool.Shutdown(); err != nil {
		slog.Error("bustubctl: shutdown flush", "err", err)
	}
}

func shouldQuit(line string) bool {
	return line == "quit" || line == "exit" || line == "\\q"
}

func dispatch(pool *buffer.Pool, store *triestore.Store, line string) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "help":
		printHelp()
	case "new":
		pageID, frame, err := pool.NewPage()
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Printf("page %d (frame pinned, %d bytes)\n", pageID, len(frame.Data))
	case "fetch":
		withPageID(args, func(pageID buffer.PageID) {
			frame, err := pool.FetchPage(pageID, buffer.AccessLookup)
			if err != nil {
				fmt.Println("error:", err)
				return
			}
			fmt.Printf("page %d: pin=%d dirty=%v first_byte=%d\n", pageID, frame.PinCount(), frame.Dirty(), frame.Data[0])
		})
	case "unpin":
		if len(args) < 2 {
			fmt.Println("usage: unpin <page_id> <0|1 dirty>")
			return
		}
		withPageID(args[:1], func(pageID buffer.PageID) {
			dirty := args[1] == "1"
			ok := pool.UnpinPage(pageID, dirty, buffer.AccessUnknown)
			fmt.Println("unpinned:", ok)
		})
	case "flush":
		withPageID(args, func(pageID buffer.PageID) {
			ok, err := pool.FlushPage(pageID)
			if err != nil {
				fmt.Println("error:", err)
				return
			}
			fmt.Println("flushed:", ok)
		})
	case "flushall":
		if err := pool.FlushAllPages(); err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println("ok")
	case "delete":
		withPageID(args, func(pageID buffer.PageID) {
			ok, err := pool.DeletePage(pageID)
			if err != nil {
				fmt.Println("error:", err)
				return
			}
			fmt.Println("deleted:", ok)
		})
	case "put":
		if len(args) < 2 {
			fmt.Println("usage: put <key> <value>")
			return
		}
		triestore.Put(store, args[0], strings.Join(args[1:], " "))
		fmt.Println("ok")
	case "get":
		if len(args) < 1 {
			fmt.Println("usage: get <key>")
			return
		}
		g, ok := triestore.Get[string](store, args[0])
		if !ok {
			fmt.Println("(not found)")
			return
		}
		fmt.Println(g.Value())
	case "remove":
		if len(args) < 1 {
			fmt.Println("usage: remove <key>")
			return
		}
		store.Remove(args[0])
		fmt.Println("ok")
	default:
		fmt.Printf("unknown command: %s (try 'help')\n", cmd)
	}
}

func withPageID(args []string, f func(buffer.PageID)) {
	if len(args) < 1 {
		fmt.Println("usage: <cmd> <page_id>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		fmt.Println("bad page id:", err)
		return
	}
	f(buffer.PageID(id))
}

func printHelp() {
	fmt.Println(`commands:
  new                       allocate a new page
  fetch <page_id>           fetch a page, pinning it
  unpin <page_id> <0|1>     unpin a page with a dirty flag
  flush <page_id>           flush a page if dirty
  flushall                  flush every resident page
  delete <page_id>          delete a page (must be unpinned)
  put <key> <value...>      bind key to value in the trie store
  get <key>                 look up key
  remove <key>              unbind key
  quit | exit               quit`)
}
