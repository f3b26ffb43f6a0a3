package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// httpClient is shared by all client commands
var httpClient = &http.Client{Timeout: 30 * time.Second}

// getJSON fetches a JSON document from the core
func getJSON(path string, out interface{}) error {
	resp, err := httpClient.Get(GetServerURL() + path)
	if err != nil {
		return fmt.Errorf("cannot reach control core at %s: %w", GetServerURL(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("core returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// postJSON sends a JSON document and decodes the response
func postJSON(path string, payload interface{}) (map[string]interface{}, int, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, 0, err
	}

	resp, err := httpClient.Post(GetServerURL()+path, "application/json", &buf)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot reach control core at %s: %w", GetServerURL(), err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// readPayload loads a request payload from a file or inline JSON string
func readPayload(file, inline string) (map[string]interface{}, error) {
	var raw []byte
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("cannot read payload file: %w", err)
		}
		raw = data
	case inline != "":
		raw = []byte(inline)
	default:
		return nil, fmt.Errorf("payload required: use --file or --data")
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	return payload, nil
}

// printJSON renders any document as indented JSON
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
