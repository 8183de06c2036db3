package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/urfave/cli/v2"
)

const callerHeader = "X-Escrow-Caller"

var (
	escrowDataDir = btcutil.AppDataDir("escrow-cli", false)
	statePath     = filepath.Join(escrowDataDir, "state.json")

	out io.Writer = os.Stdout

	httpClient = &http.Client{Timeout: 30 * time.Second}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Version = "0.0.1"
	app.Name = "escrow CLI"
	app.Usage = "Command line interface for the escrowd daemon"
	app.Writer = out
	app.Commands = append(
		app.Commands,
		&config,
		&createbid,
		&createask,
		&stake,
		&pay,
		&settle,
		&reclaim,
		&trade,
		&trades,
		&addwebhook,
		&removewebhook,
		&listwebhooks,
		&mint,
		&fund,
	)
	return app
}

func getState() (map[string]string, error) {
	data := map[string]string{}

	file, err := os.ReadFile(statePath)
	if err != nil {
		return nil, errors.New("get config state error: try 'config init'")
	}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("invalid config state: %w", err)
	}

	return data, nil
}

func setState(data map[string]string) error {
	dir := filepath.Dir(statePath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, os.ModeDir|0755); err != nil {
			return err
		}
	}

	currentData := map[string]string{}
	if _, err := os.Stat(statePath); err == nil {
		if currentData, err = getState(); err != nil {
			return err
		}
	}

	mergedData := merge(currentData, data)

	jsonString, err := json.Marshal(mergedData)
	if err != nil {
		return err
	}
	if err := os.WriteFile(statePath, jsonString, 0644); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func merge(maps ...map[string]string) map[string]string {
	merge := make(map[string]string, 0)
	for _, m := range maps {
		for k, v := range m {
			merge[k] = v
		}
	}
	return merge
}

func printRespJSON(resp []byte) {
	if len(resp) == 0 {
		return
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, resp, "", "\t"); err != nil {
		fmt.Fprintln(out, "unable to decode response: ", err)
		return
	}
	fmt.Fprintln(out, buf.String())
}

// daemonClient sends requests to the REST interface of the daemon on behalf
// of the caller configured in the local state.
type daemonClient struct {
	url    string
	caller string
}

func getDaemonClient() (*daemonClient, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	url, ok := state["daemon"]
	if !ok || url == "" {
		return nil, errors.New("set daemon with `config set daemon`")
	}
	return &daemonClient{strings.TrimSuffix(url, "/"), state["caller"]}, nil
}

func (c *daemonClient) get(path string) ([]byte, error) {
	return c.do(http.MethodGet, path, nil, false)
}

func (c *daemonClient) post(path string, body interface{}, withCaller bool) ([]byte, error) {
	return c.do(http.MethodPost, path, body, withCaller)
}

func (c *daemonClient) delete(path string) ([]byte, error) {
	return c.do(http.MethodDelete, path, nil, false)
}

func (c *daemonClient) do(
	method, path string, body interface{}, withCaller bool,
) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.url+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if withCaller {
		if c.caller == "" {
			return nil, errors.New("set caller with `config set caller`")
		}
		req.Header.Set(callerHeader, c.caller)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to daemon: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		errResp := struct {
			Error string `json:"error"`
		}{}
		if err := json.Unmarshal(respBody, &errResp); err != nil ||
			errResp.Error == "" {
			return nil, fmt.Errorf("daemon replied with status %s", resp.Status)
		}
		return nil, errors.New(errResp.Error)
	}
	return respBody, nil
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[escrow] %v\n", err)
	}
	os.Exit(1)
}
