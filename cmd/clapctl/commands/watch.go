package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-clap/pkg/protocol"
)

var pingInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream clap events as they happen",
	Long: `Connect to the clapd event stream and print every message.

The first message is a status snapshot. With --json each message is
printed as received, one per line.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return watch(ctx, cmd)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&pingInterval, "ping", 0, "measure round trip latency at this interval (0 disables)")
}

func watch(ctx context.Context, cmd *cobra.Command) error {
	url, err := wsURL(serverURL)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	if pingInterval > 0 {
		go pingLoop(ctx, conn, pingInterval)
	}

	out := cmd.OutOrStdout()
	if !outputJSON {
		fmt.Fprintln(out, dimStyle.Render("connected to "+url))
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}

		if outputJSON {
			fmt.Fprintln(out, string(data))
			continue
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			fmt.Fprintln(out, errStyle.Render("bad message: ")+err.Error())
			continue
		}
		fmt.Fprintln(out, formatMessage(msg))
	}
}

// pingLoop is the only writer on conn besides the close frame.
func pingLoop(ctx context.Context, conn *websocket.Conn, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msg, err := protocol.NewPingMessage(uuid.NewString(), time.Now().UnixMilli())
			if err != nil {
				return
			}
			data, err := msg.Bytes()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// formatMessage renders one event stream message as a single line.
func formatMessage(msg *protocol.Message) string {
	ts := dimStyle.Render(time.UnixMilli(msg.Timestamp).Format("15:04:05.000"))
	if msg.Timestamp == 0 {
		ts = dimStyle.Render("--:--:--.---")
	}

	var body string
	switch msg.Type {
	case protocol.TypeClap:
		d, err := msg.GetClapData()
		if err != nil {
			return ts + " " + errStyle.Render(err.Error())
		}
		body = okStyle.Render(fmt.Sprintf("clap #%d", d.Ordinal)) +
			fmt.Sprintf("  amplitude %.0f at %dms  %s", d.Amplitude, d.StreamTS, dimStyle.Render(shortID(d.AttemptID)))

	case protocol.TypeSequenceCompleted:
		d, err := msg.GetSequenceData()
		if err != nil {
			return ts + " " + errStyle.Render(err.Error())
		}
		body = titleStyle.Render("sequence completed") + fmt.Sprintf("  at %dms  %s", d.StreamTS, dimStyle.Render(shortID(d.AttemptID)))

	case protocol.TypeSequenceReset:
		d, err := msg.GetSequenceData()
		if err != nil {
			return ts + " " + errStyle.Render(err.Error())
		}
		body = warnStyle.Render("sequence reset") + fmt.Sprintf("  at %dms  %s", d.StreamTS, dimStyle.Render(shortID(d.AttemptID)))

	case protocol.TypeThreshold:
		d, err := msg.GetThresholdData()
		if err != nil {
			return ts + " " + errStyle.Render(err.Error())
		}
		body = fmt.Sprintf("threshold %.0f", d.Value)

	case protocol.TypeStatus:
		d, err := msg.GetStatusData()
		if err != nil {
			return ts + " " + errStyle.Render(err.Error())
		}
		state := "listening"
		if d.Paused {
			state = "paused"
		}
		body = fmt.Sprintf("status %s  backend %s  threshold %.0f  %d/%d claps",
			state, d.Backend, d.Threshold, d.Sequence.ClapCount, d.RequiredClaps)

	case protocol.TypePong:
		d, err := msg.GetPongData()
		if err != nil {
			return ts + " " + errStyle.Render(err.Error())
		}
		body = dimStyle.Render(fmt.Sprintf("pong %dms", d.LatencyMs))

	case protocol.TypeError:
		d, err := msg.GetErrorData()
		if err != nil {
			return ts + " " + errStyle.Render(err.Error())
		}
		body = errStyle.Render("error") + " " + d.Message

	default:
		body = dimStyle.Render(string(msg.Type))
	}
	return ts + " " + body
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
