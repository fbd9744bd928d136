package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-kit/log/level"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/grafana/retrace/pkg/server"
)

var errNotReady = errors.New("not ready")

type queryParams struct {
	addr    string
	timeout time.Duration
	request []string
}

func addQueryParams(cmd *kingpin.CmdClause) *queryParams {
	params := &queryParams{}
	cmd.Flag("addr", "Address of the retrace server.").Default("127.0.0.1:50123").Envar("RETRACE_ADDR").StringVar(&params.addr)
	cmd.Flag("timeout", "Timeout of a single request.").Default("30s").DurationVar(&params.timeout)
	cmd.Arg("request", "<version> <class> [<method> [<line>]]").StringsVar(&params.request)
	return params
}

func query(ctx context.Context, params *queryParams, stdin io.Reader) error {
	client, err := server.Dial(ctx, params.addr)
	if err != nil {
		return err
	}
	defer client.Close()

	send := func(line string) error {
		ctx, cancel := context.WithTimeout(ctx, params.timeout)
		defer cancel()
		resp, err := client.RoundTrip(ctx, line)
		if err != nil {
			return err
		}
		level.Debug(logger).Log("C", line, "S", resp)
		_, err = fmt.Fprintln(output(ctx), resp)
		return err
	}

	if len(params.request) > 0 {
		return send(strings.Join(params.request, " "))
	}
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		if err := send(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

type readyParams struct {
	url string
}

func addReadyParams(cmd *kingpin.CmdClause) *readyParams {
	params := &readyParams{}
	cmd.Flag("url", "HTTP address of the retrace server.").Default("http://127.0.0.1:50124").Envar("RETRACE_HTTP_URL").StringVar(&params.url)
	return params
}

func ready(ctx context.Context, params *readyParams) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(params.url, "/")+"/ready", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		level.Error(logger).Log("msg", "retrace is not ready", "status", resp.Status, "body", strings.TrimSpace(string(body)))
		return errNotReady
	}
	level.Info(logger).Log("msg", "retrace is ready")
	return nil
}
