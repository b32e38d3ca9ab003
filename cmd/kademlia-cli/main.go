// Command kademlia-cli is an operator tool that talks to a running
// node's admin API, grounded on the teacher's client/cli/main.go
// flag-based subcommand shape.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "peers":
		runGet("peers", os.Args[2:])
	case "stats":
		runGet("stats", os.Args[2:])
	case "get":
		runGetKey(os.Args[2:])
	case "put":
		runPutKey(os.Args[2:])
	case "lookup":
		runLookup(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kademlia-cli <peers|stats|get|put|lookup> [-admin http://127.0.0.1:9641] [args...]")
	fmt.Fprintln(os.Stderr, "  peers")
	fmt.Fprintln(os.Stderr, "  stats")
	fmt.Fprintln(os.Stderr, "  get <key>")
	fmt.Fprintln(os.Stderr, "  put <key> <value> [ttl]")
	fmt.Fprintln(os.Stderr, "  lookup <key>")
}

func runGet(resource string, args []string) {
	fs := flag.NewFlagSet(resource, flag.ExitOnError)
	admin := fs.String("admin", "http://127.0.0.1:9641", "base URL of the node's admin API")
	_ = fs.Parse(args)

	resp, body := doRequest(http.MethodGet, fmt.Sprintf("%s/v1/%s", *admin, resource), nil)
	printResponse(resp, body)
}

func runGetKey(args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	admin := fs.String("admin", "http://127.0.0.1:9641", "base URL of the node's admin API")
	_ = fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 1 {
		usage()
		os.Exit(1)
	}

	resp, body := doRequest(http.MethodGet, fmt.Sprintf("%s/v1/store/%s", *admin, rest[0]), nil)
	printResponse(resp, body)
}

func runPutKey(args []string) {
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	admin := fs.String("admin", "http://127.0.0.1:9641", "base URL of the node's admin API")
	version := fs.Uint64("version", 1, "store version (must increase on overwrite)")
	_ = fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 2 {
		usage()
		os.Exit(1)
	}
	key, value := rest[0], rest[1]
	// rest[2], if present, is an optional TTL hint ignored by the admin
	// API today: the value's lifetime is governed by the node's own
	// configured ValueTTL, matching every other STORE originator.

	payload, err := json.Marshal(struct {
		Data    []byte `json:"data"`
		Version uint64 `json:"version"`
	}{Data: []byte(value), Version: *version})
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode request failed: %v\n", err)
		os.Exit(1)
	}

	resp, body := doRequest(http.MethodPut, fmt.Sprintf("%s/v1/store/%s", *admin, key), payload)
	printResponse(resp, body)
}

func runLookup(args []string) {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	admin := fs.String("admin", "http://127.0.0.1:9641", "base URL of the node's admin API")
	value := fs.Bool("value", false, "run FIND_VALUE instead of FIND_NODE")
	_ = fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 1 {
		usage()
		os.Exit(1)
	}

	url := fmt.Sprintf("%s/v1/lookup/%s", *admin, rest[0])
	if *value {
		url += "?mode=value"
	}
	resp, body := doRequest(http.MethodGet, url, nil)
	printResponse(resp, body)
}

func doRequest(method, url string, body []byte) (*http.Response, []byte) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request failed: %v\n", err)
		os.Exit(1)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read response failed: %v\n", err)
		os.Exit(1)
	}
	return resp, respBody
}

func printResponse(resp *http.Response, body []byte) {
	if resp.StatusCode >= 300 {
		fmt.Fprintf(os.Stderr, "admin api returned %s: %s\n", resp.Status, body)
		os.Exit(1)
	}

	var pretty interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
}
