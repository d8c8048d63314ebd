// Package main is a terminal client for the book chat relay. It sends one
// prompt and renders the reply as it streams.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"bookchat/internal/sse"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Relay server base URL")
	token := flag.String("token", "", "Bearer token, if the server requires one")
	flag.Parse()

	prompt := strings.Join(flag.Args(), " ")
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "usage: chatcli [-server URL] [-token KEY] <prompt>")
		os.Exit(2)
	}

	final, err := run(*serverURL, *token, prompt)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// The stream renders progressively above; print the cleaned-up final
	// text once more so it is what lands in the scrollback.
	fmt.Println()
	fmt.Println(final)
}

func run(serverURL, token, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var lastLen int
	final, err := sse.Consume(resp.Body, func(text string) {
		// Each update is the whole accumulated reply; print only the tail.
		if len(text) > lastLen {
			fmt.Print(text[lastLen:])
			lastLen = len(text)
		}
	})
	if err != nil {
		return final, err
	}
	return final, nil
}
