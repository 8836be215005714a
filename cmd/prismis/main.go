// Command prismis is a thin command-line client for the prismisd REST
// API. stdout is reserved for pipeable output (export, raw content);
// everything else - status lines, errors - goes to stderr. Exit code 0 on
// success, 1 on any error.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/prismis/prismis/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "prismis:", err)
		os.Exit(1)
	}
}

// client carries the base URL and API key every request needs.
type client struct {
	base string
	key  string
	http *http.Client
}

func newClient() (*client, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return &client{
		base: fmt.Sprintf("http://%s:%d", cfg.API.Host, cfg.API.Port),
		key:  cfg.API.Key,
		http: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// envelope mirrors the API's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *client) do(method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response (%s): %w", resp.Status, err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%s (%s)", env.Message, resp.Status)
	}
	return env.Data, nil
}

// raw fetches a plain-text endpoint (GET /api/entries/{id}/raw).
func (c *client) raw(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.key)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(body))
	}
	return io.ReadAll(resp.Body)
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("a command is required")
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "source":
		return runSource(c, rest)
	case "list":
		return runList(c, rest)
	case "get":
		return runGet(c, rest)
	case "search":
		return runSearch(c, rest)
	case "prune":
		return runPrune(c, rest)
	case "export":
		return runExport(c, rest)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: prismis <command> [args]

commands:
  source add <kind> <url> [name]    add a source (kind: feed|forum|video|file)
  source list                       list sources
  source pause|resume|remove <id>   toggle or delete a source
  source edit <id> [--name n] [--url u]
  list [--priority p] [--unread]    list entries
  get <id> [--raw]                  show one entry (--raw pipes plain text)
  search <query> [--limit n]        semantic search
  prune count|delete [--days n]     count or delete unprioritized entries
  export --format json|csv          dump entries to stdout`)
}

func runSource(c *client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("source requires a subcommand (add, list, pause, resume, remove, edit)")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "add":
		if len(rest) < 2 {
			return fmt.Errorf("source add requires <kind> and <url>")
		}
		name := ""
		if len(rest) > 2 {
			name = rest[2]
		}
		data, err := c.do(http.MethodPost, "/api/sources", map[string]string{
			"kind": rest[0], "url": rest[1], "name": name,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "added: %s\n", data)
		return nil
	case "list":
		data, err := c.do(http.MethodGet, "/api/sources", nil)
		if err != nil {
			return err
		}
		return printJSON(data)
	case "pause", "resume":
		id, err := requireID(rest)
		if err != nil {
			return err
		}
		if _, err := c.do(http.MethodPatch, fmt.Sprintf("/api/sources/%d/%s", id, sub), nil); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "source %d %sd\n", id, sub)
		return nil
	case "remove":
		id, err := requireID(rest)
		if err != nil {
			return err
		}
		if _, err := c.do(http.MethodDelete, fmt.Sprintf("/api/sources/%d", id), nil); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "source %d removed\n", id)
		return nil
	case "edit":
		id, err := requireID(rest)
		if err != nil {
			return err
		}
		body := map[string]string{}
		for i := 1; i+1 < len(rest); i += 2 {
			switch rest[i] {
			case "--name":
				body["name"] = rest[i+1]
			case "--url":
				body["url"] = rest[i+1]
			}
		}
		if len(body) == 0 {
			return fmt.Errorf("source edit requires --name and/or --url")
		}
		if _, err := c.do(http.MethodPatch, fmt.Sprintf("/api/sources/%d", id), body); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "source %d updated\n", id)
		return nil
	default:
		return fmt.Errorf("unknown source subcommand %q", sub)
	}
}

func runList(c *client, args []string) error {
	q := url.Values{}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--priority":
			if i+1 >= len(args) {
				return fmt.Errorf("--priority requires a value")
			}
			i++
			q.Set("priority", args[i])
		case "--unread":
			q.Set("unread_only", "true")
		case "--archived":
			q.Set("include_archived", "true")
		}
	}
	path := "/api/entries"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	data, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return printJSON(data)
}

func runGet(c *client, args []string) error {
	id, err := requireID(args)
	if err != nil {
		return err
	}
	if hasFlag(args, "--raw") {
		body, err := c.raw(fmt.Sprintf("/api/entries/%d/raw", id))
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(body)
		return err
	}
	data, err := c.do(http.MethodGet, fmt.Sprintf("/api/entries/%d?include=content", id), nil)
	if err != nil {
		return err
	}
	return printJSON(data)
}

func runSearch(c *client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("search requires a query")
	}
	q := url.Values{"q": {args[0]}}
	for i := 1; i+1 < len(args); i += 2 {
		if args[i] == "--limit" {
			q.Set("limit", args[i+1])
		}
	}
	data, err := c.do(http.MethodGet, "/api/search?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return printJSON(data)
}

func runPrune(c *client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("prune requires count or delete")
	}
	q := url.Values{}
	for i := 1; i+1 < len(args); i += 2 {
		if args[i] == "--days" {
			q.Set("days", args[i+1])
		}
	}
	suffix := ""
	if enc := q.Encode(); enc != "" {
		suffix = "?" + enc
	}
	switch args[0] {
	case "count":
		data, err := c.do(http.MethodGet, "/api/prune/count"+suffix, nil)
		if err != nil {
			return err
		}
		return printJSON(data)
	case "delete":
		data, err := c.do(http.MethodPost, "/api/prune"+suffix, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "pruned: %s\n", data)
		return nil
	default:
		return fmt.Errorf("unknown prune subcommand %q", args[0])
	}
}

// exportEntry is the subset of entry fields the CSV export emits.
type exportEntry struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary"`
	Priority    *string   `json:"priority"`
	PublishedAt time.Time `json:"published_at"`
}

func runExport(c *client, args []string) error {
	format := "json"
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == "--format" {
			format = args[i+1]
		}
	}

	data, err := c.do(http.MethodGet, "/api/entries", nil)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		return printJSON(data)
	case "csv":
		var entries []exportEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return err
		}
		w := csv.NewWriter(os.Stdout)
		if err := w.Write([]string{"id", "title", "url", "summary", "priority", "published_at"}); err != nil {
			return err
		}
		for _, e := range entries {
			priority := ""
			if e.Priority != nil {
				priority = *e.Priority
			}
			record := []string{
				strconv.FormatInt(e.ID, 10), e.Title, e.URL, e.Summary,
				priority, e.PublishedAt.UTC().Format(time.RFC3339),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	default:
		return fmt.Errorf("unknown export format %q (json or csv)", format)
	}
}

func printJSON(data json.RawMessage) error {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		_, werr := os.Stdout.Write(data)
		return werr
	}
	out.WriteByte('\n')
	_, err := os.Stdout.Write(out.Bytes())
	return err
}

func requireID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("an id argument is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}
