// Package editor exposes the index to a host editor as newline-delimited
// JSON over a byte stream, typically the process stdin and stdout.
//
// Each request is one JSON object on its own line:
//
//	{"op":"update_content","content":"# asdf - Title\n..."}
//	{"op":"go_to","request":{"mode":"Forward","cursor":[0,7,6]}}
//
// and is answered by exactly one response line:
//
//	{"ok":true}
//	{"ok":true,"target":{"line":1}}
//	{"ok":false,"error":{"kind":"missing_note","message":"note \"x\" not found"}}
//
// A line that is not valid JSON, or names an unknown op, is a protocol
// mismatch with the host and ends the session with an error.
package editor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/zettelnav/internal/apperr"
	"github.com/starford/zettelnav/internal/models"
	"github.com/starford/zettelnav/internal/noteservice"
)

// Ops understood by Serve.
const (
	OpUpdateContent = "update_content"
	OpGoTo          = "go_to"
)

// maxLine bounds a single request, which carries the whole corpus on update.
const maxLine = 64 << 20

// ErrProtocol marks a fatal boundary fault.
var ErrProtocol = errors.New("editor: protocol error")

// Backend is the subset of the note service the editor talks to.
type Backend interface {
	Rebuild(ctx context.Context, content string) (noteservice.RebuildResult, error)
	Jump(ctx context.Context, req models.JumpRequest) (models.Target, error)
}

var _ Backend = (*noteservice.Service)(nil)

// Request is one decoded request line.
type Request struct {
	Op      string              `json:"op"`
	Content *string             `json:"content,omitempty"`
	Request *models.JumpRequest `json:"request,omitempty"`
}

// Response is one encoded response line.
type Response struct {
	OK     bool           `json:"ok"`
	Target *models.Target `json:"target,omitempty"`
	Error  *ErrorBody     `json:"error,omitempty"`
}

// ErrorBody describes a per-request failure.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// Serve answers requests read from r on w until r is exhausted or ctx is
// cancelled. It returns nil at end of input and a wrapped ErrProtocol for
// malformed requests.
func Serve(ctx context.Context, b Backend, r io.Reader, w io.Writer, logger *slog.Logger) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	for n := 1; sc.Scan(); n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrProtocol, n, err)
		}
		resp, err := handle(ctx, b, req)
		if err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrProtocol, n, err)
		}
		if !resp.OK {
			logger.Debug("editor: request failed",
				slog.String("op", req.Op),
				slog.String("kind", resp.Error.Kind))
		}

		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("editor: write response: %w", err)
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("editor: flush: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return nil
}

// handle runs one request. A non-nil error is a protocol fault; domain
// failures are reported inside the Response.
func handle(ctx context.Context, b Backend, req Request) (Response, error) {
	switch req.Op {
	case OpUpdateContent:
		if req.Content == nil {
			return Response{}, errors.New("update_content without content")
		}
		if _, err := b.Rebuild(ctx, *req.Content); err != nil {
			return failure(err), nil
		}
		return Response{OK: true}, nil

	case OpGoTo:
		if req.Request == nil {
			return Response{}, errors.New("go_to without request")
		}
		target, err := b.Jump(ctx, *req.Request)
		if err != nil {
			return failure(err), nil
		}
		return Response{OK: true, Target: &target}, nil

	default:
		return Response{}, fmt.Errorf("unknown op %q", req.Op)
	}
}

func failure(err error) Response {
	body := &ErrorBody{Kind: apperr.Kind(err), Message: err.Error()}
	var le *apperr.InvalidLinkError
	var he *apperr.InvalidHeaderError
	switch {
	case errors.As(err, &le):
		body.Line = le.Line
	case errors.As(err, &he):
		body.Line = he.Line
	}
	return Response{Error: body}
}
