// Package stdio implements the line-delimited JSON-RPC transport spec §4.13
// names: one JSON-RPC message per line on stdin, one response line on
// stdout, with all diagnostics routed to stderr so the wire is never
// polluted. Grounded on the request/response framing in
// internal/mcpclient/mcpclient.go (the teacher's client-side counterpart)
// reimplemented as a server read loop.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog/log"

	"qdrantloader/internal/rpc"
)

// MaxLineBytes bounds a single incoming line to guard against an unbounded
// allocation from a misbehaving client.
const MaxLineBytes = 16 * 1024 * 1024

// Run reads newline-delimited JSON-RPC requests from r, dispatches each
// through d, and writes newline-delimited responses to w. It returns when r
// is exhausted (EOF) or ctx is canceled. A malformed line yields a
// parse-error response with id=null rather than terminating the loop (spec
// §4.13): one bad line must not take down the whole session.
func Run(ctx context.Context, d *rpc.Dispatcher, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxLineBytes)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(trimSpace(line)) == 0 {
			continue
		}

		resp := d.HandleRequest(ctx, line)
		if resp == nil {
			continue // notification: spec §4.13 requires no response line
		}
		if err := enc.Encode(resp); err != nil {
			log.Error().Err(err).Msg("stdio transport: failed writing response")
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("stdio transport: read error")
		return err
	}
	return nil
}

func trimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
