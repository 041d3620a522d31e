// Command taskhub is the taskhub CLI client.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/GoCodeAlone/taskhub/client"
	"github.com/GoCodeAlone/taskhub/internal/version"
	"github.com/GoCodeAlone/taskhub/task"
)

const defaultServer = "http://localhost:8080"

func main() {
	var (
		serverURL = flag.String("server", defaultServer, "taskhub server URL")
		token     = flag.String("token", os.Getenv("TASKHUB_TOKEN"), "bearer auth token")
		owner     = flag.String("owner", os.Getenv("TASKHUB_OWNER"), "owner id the token belongs to")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	baseURL := strings.TrimRight(*serverURL, "/")
	httpc := &http.Client{Timeout: 15 * time.Second}
	ctx := context.Background()

	cmd := args[0]
	rest := args[1:]

	var err error
	switch cmd {
	case "version":
		fmt.Printf("taskhub %s (commit %s, built %s)\n",
			version.Version, version.Commit, version.BuildDate)
	case "status":
		err = cmdStatus(httpc, baseURL)
	case "signup":
		err = cmdSignup(ctx, httpc, baseURL, rest)
	case "login":
		err = cmdLogin(ctx, httpc, baseURL, rest)
	case "tasks":
		err = withStore(ctx, baseURL, *token, *owner, httpc, cmdTasks)
	case "task":
		err = withStore(ctx, baseURL, *token, *owner, httpc, func(ctx context.Context, store *client.TaskStore) error {
			return cmdTask(ctx, store, rest)
		})
	case "serve":
		fmt.Fprintln(os.Stderr, "use taskhubd to run the server")
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `taskhub - task manager CLI

Usage:
  taskhub [flags] <command> [args]

Flags:
  --server  <url>    server URL (default: http://localhost:8080)
  --token   <token>  bearer auth token (or $TASKHUB_TOKEN)
  --owner   <id>     owner id the token belongs to (or $TASKHUB_OWNER)

Commands:
  version                     print version
  status                      show server status
  signup <email> <password> [name]  register and print credentials
  login  <email> <password>   sign in and print credentials
  tasks                       list tasks
  task add <title...>         create a task
  task get <id>               show one task
  task edit <id> <title...>   rename a task
  task done <id>              toggle completion
  task rm <id>                delete a task
`)
}

// withStore builds a refreshed TaskStore and runs fn against it.
func withStore(ctx context.Context, baseURL, token, owner string, httpc *http.Client, fn func(context.Context, *client.TaskStore) error) error {
	if token == "" || owner == "" {
		return fmt.Errorf("login first: --token and --owner are required (or $TASKHUB_TOKEN / $TASKHUB_OWNER)")
	}
	store := client.New(baseURL, token, owner, httpc)
	if err := store.Refresh(ctx); err != nil {
		return err
	}
	return fn(ctx, store)
}

func cmdStatus(httpc *http.Client, baseURL string) error {
	resp, err := httpc.Get(baseURL + "/api/status")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var env struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	fmt.Printf("status:  %s\n", env.Data["status"])
	fmt.Printf("version: %s\n", env.Data["version"])
	return nil
}

func cmdSignup(ctx context.Context, httpc *http.Client, baseURL string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: taskhub signup <email> <password> [name]")
	}
	name := ""
	if len(args) > 2 {
		name = strings.Join(args[2:], " ")
	}
	creds, err := client.Signup(ctx, httpc, baseURL, args[0], args[1], name)
	if err != nil {
		return err
	}
	printCredentials(creds)
	return nil
}

func cmdLogin(ctx context.Context, httpc *http.Client, baseURL string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: taskhub login <email> <password>")
	}
	creds, err := client.Signin(ctx, httpc, baseURL, args[0], args[1])
	if err != nil {
		return err
	}
	printCredentials(creds)
	return nil
}

func printCredentials(creds *client.Credentials) {
	fmt.Printf("owner: %s\n", creds.User.ID)
	fmt.Printf("token: %s\n", creds.Token)
	fmt.Println()
	fmt.Println("export these for later commands:")
	fmt.Printf("  export TASKHUB_OWNER=%s\n", creds.User.ID)
	fmt.Printf("  export TASKHUB_TOKEN=%s\n", creds.Token)
}

func cmdTasks(_ context.Context, store *client.TaskStore) error {
	tasks := store.Tasks()
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	fmt.Printf("%-36s %-6s %-40s %s\n", "ID", "DONE", "TITLE", "UPDATED")
	fmt.Println(strings.Repeat("-", 100))
	for _, t := range tasks {
		done := " "
		if t.Completed {
			done = "x"
		}
		fmt.Printf("%-36s [%s]    %-40s %s\n",
			t.ID, done, t.Title, t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func cmdTask(ctx context.Context, store *client.TaskStore, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: taskhub task <add|get|edit|done|rm> ...")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "add":
		if len(rest) == 0 {
			return fmt.Errorf("usage: taskhub task add <title...>")
		}
		t, err := store.Create(ctx, strings.Join(rest, " "), nil)
		if err != nil {
			return err
		}
		fmt.Printf("created %s\n", t.ID)
		return nil
	case "get":
		if len(rest) != 1 {
			return fmt.Errorf("usage: taskhub task get <id>")
		}
		t, ok := store.Get(rest[0])
		if !ok {
			return fmt.Errorf("task %s not found", rest[0])
		}
		out, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	case "edit":
		if len(rest) < 2 {
			return fmt.Errorf("usage: taskhub task edit <id> <title...>")
		}
		title := strings.Join(rest[1:], " ")
		t, err := store.Update(ctx, rest[0], task.Patch{Title: &title})
		if err != nil {
			return err
		}
		fmt.Printf("updated %s\n", t.ID)
		return nil
	case "done":
		if len(rest) != 1 {
			return fmt.Errorf("usage: taskhub task done <id>")
		}
		t, err := store.ToggleComplete(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s completed=%v\n", t.ID, t.Completed)
		return nil
	case "rm":
		if len(rest) != 1 {
			return fmt.Errorf("usage: taskhub task rm <id>")
		}
		if err := store.Delete(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", rest[0])
		return nil
	default:
		return fmt.Errorf("unknown task subcommand: %s", sub)
	}
}
