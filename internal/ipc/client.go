package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

// ErrBadLauncherArg is returned for a malformed --launcher value
var ErrBadLauncherArg = errors.New("malformed launcher argument")

// ParseLauncherArg splits "tcp:<endpoint>:<nonce>" into endpoint and nonce.
// The endpoint may itself contain colons; nonces never do.
func ParseLauncherArg(arg string) (endpoint, nonce string, err error) {
	rest, ok := strings.CutPrefix(arg, "tcp:")
	if !ok {
		return "", "", fmt.Errorf("%w: missing tcp scheme", ErrBadLauncherArg)
	}
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 || i == len(rest)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrBadLauncherArg, arg)
	}
	return rest[:i], rest[i+1:], nil
}

// Dial redeems nonce at endpoint. This is the application side of the
// handshake.
func Dial(ctx context.Context, endpoint, nonce string) (types.ActivationTicket, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return types.ActivationTicket{}, fmt.Errorf("dial launcher: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte(nonce + "\n")); err != nil {
		return types.ActivationTicket{}, fmt.Errorf("send nonce: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return types.ActivationTicket{}, fmt.Errorf("read ticket: %w", err)
	}

	var resp redeemResponse
	if err := sonic.Unmarshal(line, &resp); err != nil {
		return types.ActivationTicket{}, fmt.Errorf("decode ticket: %w", err)
	}
	if resp.Error != "" || resp.Ticket == nil {
		return types.ActivationTicket{}, fmt.Errorf("launcher rejected nonce: %s", resp.Error)
	}
	return *resp.Ticket, nil
}
