// Command ingest is an operator tool for exercising the webhook endpoints:
// it signs and delivers extraction payloads the same way the pipeline does.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/yourorg/clearscrub/internal/normalize"
	"github.com/yourorg/clearscrub/internal/security/webhookauth"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "statement":
		sendPayload(args, "/webhooks/statement-intake")
	case "application":
		sendPayload(args, "/webhooks/application-intake")
	case "normalize":
		normalizeName(args)
	case "mask":
		maskAccount(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: ingest <command> [flags]

Commands:
  statement    deliver a statement extraction payload file
  application  deliver an application payload file
  normalize    print the canonical comparison key for a company name
  mask         print the masked display form of an account number
  help         show this help

Delivery flags:
  -server URL  intake server base URL (default http://localhost:8080)
  -secret S    webhook secret (default env WEBHOOK_SECRET)
  -file PATH   payload file, - for stdin (required)`)
}

func sendPayload(args []string, path string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "intake server base URL")
	secret := fs.String("secret", os.Getenv("WEBHOOK_SECRET"), "webhook secret")
	file := fs.String("file", "", "payload file, - for stdin")
	fs.Parse(args)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "-file is required")
		os.Exit(1)
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "no webhook secret: pass -secret or set WEBHOOK_SECRET")
		os.Exit(1)
	}

	body, err := readPayload(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read payload: %v\n", err)
		os.Exit(1)
	}
	if !json.Valid(body) {
		fmt.Fprintln(os.Stderr, "payload is not valid JSON")
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodPost, *server+path, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhookauth.SecretHeader, *secret)
	req.Header.Set(webhookauth.TimestampHeader, strconv.FormatInt(time.Now().UnixMilli(), 10))

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "delivery failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s\n%s\n", resp.Status, indentJSON(respBody))
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func normalizeName(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: ingest normalize <company name>")
		return
	}
	fmt.Println(normalize.CompanyName(args[0]))
}

func maskAccount(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: ingest mask <account number>")
		return
	}
	fmt.Println(normalize.MaskAccountNumber(args[0]))
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func indentJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
